package prompts

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a registry whenever its override file changes.
type Watcher struct {
	registry     *PromptRegistry
	path         string
	debounceTime time.Duration
	logger       *zap.Logger
	onReload     func(count int, err error)
}

// NewWatcher creates a watcher for the override file at path.
func NewWatcher(registry *PromptRegistry, path string, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		registry:     registry,
		path:         filepath.Clean(path),
		debounceTime: 200 * time.Millisecond,
		logger:       logger,
	}
}

// OnReload sets a callback invoked after every reload attempt.
func (w *Watcher) OnReload(callback func(count int, err error)) {
	w.onReload = callback
}

// Run loads the override file once, then watches it until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are still picked up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.reload()

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounceTime)
			} else {
				debounce.Reset(w.debounceTime)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("persona watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	count, err := Reload(w.registry, w.path)
	if err != nil {
		w.logger.Error("persona reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.logger.Info("personas reloaded", zap.String("path", w.path), zap.Int("overrides", count))
	}
	if w.onReload != nil {
		w.onReload(count, err)
	}
}
