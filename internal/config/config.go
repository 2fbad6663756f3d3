package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	GraphQLURL  string        `mapstructure:"graphql_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	StateFile   string        `mapstructure:"state_file"`

	SignalURL       string        `mapstructure:"signal_url"`
	JoinTimeout     time.Duration `mapstructure:"join_timeout"`
	HangupWhenEmpty bool          `mapstructure:"hangup_when_empty"`

	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshLimit    int           `mapstructure:"refresh_limit"`
	RefreshWindow   time.Duration `mapstructure:"refresh_window"`
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults. CASTLINK_*
// environment variables, optionally from a .env file, win over both.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CASTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.GraphQLURL == "" {
		return nil, fmt.Errorf("graphql_url must be set")
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | API: %s\n", cfg.Mode, cfg.Port, cfg.GraphQLURL)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("graphql_url", "https://api.example.com/graphql")
	v.SetDefault("http_timeout", "5s")
	v.SetDefault("state_file", "./data/state.yaml")
	v.SetDefault("signal_url", "")
	v.SetDefault("join_timeout", "10s")
	v.SetDefault("hangup_when_empty", false)
	v.SetDefault("refresh_interval", "15m")
	v.SetDefault("refresh_limit", 3)
	v.SetDefault("refresh_window", "1m")
}
