package config

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watcher watches for configuration changes.
type Watcher struct {
	current    *Config
	onReload   func(*Config, error)
	done       chan struct{}
	path       string
	schemaPath string
	mu         sync.RWMutex
	closeOnce  sync.Once
	reloads    atomic.Uint32
}

// NewWatcher creates a new config watcher.
func NewWatcher(path string, schemaPath string, onReload func(*Config, error)) (*Watcher, error) {
	watcher := &Watcher{
		path:       path,
		schemaPath: schemaPath,
		onReload:   onReload,
		done:       make(chan struct{}),
	}

	cfg, err := LoadAndValidate(path, schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}
	watcher.current = cfg

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config file %s: %w", path, err)
	}

	go watcher.watch(fw)

	return watcher, nil
}

// watch watches for configuration changes.
func (cw *Watcher) watch(watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-cw.done:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if timer != nil {
					timer.Stop()
				}

				timer = time.AfterFunc(reloadDebounce, cw.reload)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			slog.Error("Watcher error", "error", err)
		}
	}
}

// reload reloads the config file.
func (cw *Watcher) reload() {
	count := cw.reloads.Add(1)
	slog.Info("Reloading config file", "path", cw.path, "count", count)

	cfg, err := LoadAndValidate(cw.path, cw.schemaPath)
	if err != nil {
		slog.Error("Failed to reload config", "error", err)
		cw.onReload(nil, err)
		return
	}

	cw.mu.Lock()
	cw.current = cfg
	cw.mu.Unlock()

	slog.Info("Config reloaded successfully", "count", count)
	cw.onReload(cfg, nil)
}

// Snapshot returns the current config snapshot (thread-safe).
func (cw *Watcher) Snapshot() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()

	return cw.current
}

// ReloadCount returns the number of times the config has been reloaded.
func (cw *Watcher) ReloadCount() uint32 {
	return cw.reloads.Load()
}

// Close stops watching the config file.
func (cw *Watcher) Close() error {
	cw.closeOnce.Do(func() {
		close(cw.done)
	})
	return nil
}
