// Package settings persists the credential state to a yaml file.
package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/castlink/internal/core"
)

// File is a core.SettingsStore backed by viper. Values set in memory
// reach disk on Save.
type File struct {
	path string

	mu sync.Mutex
	v  *viper.Viper
	// disk is what the file held after our last read or Save.
	disk map[string]any
}

var _ core.SettingsStore = (*File)(nil)

// Open reads path if it exists. A missing file is an empty store.
func Open(path string) (*File, error) {
	v, err := read(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, v: v, disk: v.AllSettings()}, nil
}

func read(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	return v, nil
}

func (f *File) GetString(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v.GetString(key)
}

func (f *File) SetString(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v.Set(key, value)
}

// Save writes every value to disk with owner-only permissions.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := f.v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Chmod(f.path, 0o600); err != nil {
		return fmt.Errorf("chmod settings: %w", err)
	}
	f.disk = f.v.AllSettings()
	return nil
}

// Watch reloads the file whenever another process changes it and calls
// onChange. Events carrying what this store last wrote are ignored, so
// values set after a Save survive its event. External edits replace
// unsaved in-memory values. Watch blocks until ctx is done.
func (f *File) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}
	logger := log.With().Str("module", "adapters.settings").Str("path", f.path).Logger()
	target := filepath.Clean(f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if f.reload() {
				logger.Info().Str("op", ev.Op.String()).Msg("settings changed on disk")
				if onChange != nil {
					onChange()
				}
			}
		}
	}
}

// reload reports whether the file now holds something this store neither
// read nor wrote.
func (f *File) reload() bool {
	// Held across the read so a concurrent Save is never seen half written.
	f.mu.Lock()
	defer f.mu.Unlock()
	v, err := read(f.path)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.settings").Msg("reload failed")
		return false
	}
	after := v.AllSettings()
	if sameSettings(after, f.disk) || sameSettings(after, f.v.AllSettings()) {
		f.disk = after
		return false
	}
	f.v = v
	f.disk = after
	return true
}

func sameSettings(a, b map[string]any) bool {
	return maps.EqualFunc(a, b, func(x, y any) bool { return fmt.Sprint(x) == fmt.Sprint(y) })
}
