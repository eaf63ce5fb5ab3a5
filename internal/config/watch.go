package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDebounce is how long the config file must stay quiet before it is
// reloaded.
const ReloadDebounce = 300 * time.Millisecond

// Watch delivers a freshly loaded configuration every time the config file
// changes, until ctx is done. The containing directory is watched so editors
// that replace the file on save are followed. A file that fails to load is
// logged and skipped. The returned channel is closed when watching stops.
func (cm *ConfigManager) Watch(ctx context.Context) (<-chan *Config, error) {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	out := make(chan *Config, 1)
	go cm.watchLoop(ctx, watcher, out)
	return out, nil
}

func (cm *ConfigManager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- *Config) {
	defer close(out)
	defer watcher.Close()

	target := filepath.Clean(cm.configPath)
	debounce := time.NewTimer(ReloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(ReloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "error", err)

		case <-debounce.C:
			config, err := cm.Load()
			if err != nil {
				slog.Warn("ignoring config change", "path", cm.configPath, "error", err)
				continue
			}
			slog.Info("config reloaded", "path", cm.configPath)
			select {
			case out <- config:
			case <-ctx.Done():
				return
			}
		}
	}
}
