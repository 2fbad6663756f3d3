package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir moves the test into an empty directory so no stray config or .env
// file leaks in.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 || cfg.Mode != "release" {
		t.Errorf("Port/Mode = %d/%s", cfg.Port, cfg.Mode)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
	if cfg.JoinTimeout != 10*time.Second || cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("JoinTimeout/RefreshInterval = %v/%v", cfg.JoinTimeout, cfg.RefreshInterval)
	}
	if cfg.RefreshLimit != 3 || cfg.RefreshWindow != time.Minute {
		t.Errorf("RefreshLimit/RefreshWindow = %d/%v", cfg.RefreshLimit, cfg.RefreshWindow)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("CONFIG_ENV", "test")
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "port: 9000\ngraphql_url: https://file.test/graphql\njoin_timeout: 3s\n"
	if err := os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CASTLINK_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want env override 9100", cfg.Port)
	}
	if cfg.GraphQLURL != "https://file.test/graphql" {
		t.Errorf("GraphQLURL = %q", cfg.GraphQLURL)
	}
	if cfg.JoinTimeout != 3*time.Second {
		t.Errorf("JoinTimeout = %v, want 3s", cfg.JoinTimeout)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	t.Setenv("CONFIG_ENV", "test")
	// Registered so the variable godotenv sets is restored afterwards.
	t.Setenv("CASTLINK_LOG_LEVEL", "")
	os.Unsetenv("CASTLINK_LOG_LEVEL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CASTLINK_LOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}
