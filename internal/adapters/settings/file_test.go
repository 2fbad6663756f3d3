package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFile_SaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "auth.yaml")

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := f.GetString("auth_email"); got != "" {
		t.Errorf("GetString() on fresh store = %q", got)
	}

	f.SetString("auth_email", "e@x.io")
	f.SetString("auth_stream_key", "sk")
	if err := f.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	g, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if g.GetString("auth_email") != "e@x.io" || g.GetString("auth_stream_key") != "sk" {
		t.Errorf("reopened values = %q / %q", g.GetString("auth_email"), g.GetString("auth_stream_key"))
	}
}

func TestOpen_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	if err := os.WriteFile(path, []byte("auth_email: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("Open() expected error for malformed yaml")
	}
}

func TestFile_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	f, _ := Open(path)
	f.SetString("auth_email", "old@x.io")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}
	if f.reload() {
		t.Error("reload() reported a change after our own Save")
	}

	if err := os.WriteFile(path, []byte("auth_email: new@x.io\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if !f.reload() {
		t.Fatal("reload() missed an external edit")
	}
	if got := f.GetString("auth_email"); got != "new@x.io" {
		t.Errorf("GetString() = %q, want new@x.io", got)
	}
}

func TestFile_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	f, _ := Open(path)
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() { done <- f.Watch(ctx, func() { changed <- struct{}{} }) }()

	// Give the watcher time to register before writing.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case <-changed:
			if f.GetString("auth_email") == "" {
				t.Error("change callback fired before reload")
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() error = %v", err)
			}
			return
		case <-tick.C:
			_ = os.WriteFile(path, []byte("auth_email: w"+string(rune('a'+i%26))+"@x.io\n"), 0o600)
		case <-deadline:
			t.Fatal("Watch() never reported the change")
		}
	}
}

func TestFile_ReloadKeepsValuesSetAfterSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	f, _ := Open(path)

	f.SetString("auth_token", "saved")
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}
	f.SetString("auth_token", "pending")

	if f.reload() {
		t.Error("reload() treated our own Save as an external edit")
	}
	if got := f.GetString("auth_token"); got != "pending" {
		t.Errorf("GetString() = %q, want pending", got)
	}
}

func TestFile_WatchIgnoresOwnSaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.yaml")
	f, _ := Open(path)
	if err := f.Save(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- f.Watch(ctx, func() { calls.Add(1) }) }()
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 10; i++ {
		f.SetString("auth_token", "saved")
		if err := f.Save(); err != nil {
			t.Fatal(err)
		}
		f.SetString("auth_token", "pending")
		time.Sleep(20 * time.Millisecond)
		if got := f.GetString("auth_token"); got != "pending" {
			t.Fatalf("iteration %d: GetString() = %q, want pending", i, got)
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("onChange calls = %d, want 0", n)
	}
}
