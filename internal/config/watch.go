// internal/config/watch.go
//
// File watcher that reloads configuration when conf/global.yaml changes.
// The .env layer never overrides variables already in the environment, so it
// is not watched.  Editors often write a file in several steps, so events
// are debounced before Reload runs.  A reload that fails validation keeps the
// previous Config in place.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/yanizio/contactform/internal/metrics"
)

// debounce is the quiet period after the last event before reloading.
const debounce = 250 * time.Millisecond

// Watch blocks until ctx is done, calling onChange with every Config that
// reloads successfully.  It watches the conf directory below the root of
// the last load.
func Watch(ctx context.Context, onChange func(*Config)) error {
	cfg := Get()
	if cfg == nil {
		return fmt.Errorf("config: Watch called before Load")
	}
	dir := filepath.Join(cfg.Paths.Root, "conf")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("config: watch %s: %w", dir, err)
	}
	zap.S().Infow("config watcher online", "dir", dir)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			zap.S().Warnw("config watcher error", "err", err)

		case <-fire:
			fire = nil
			next, err := Reload()
			if err != nil {
				metrics.ConfigReloadTotal.WithLabelValues("error").Inc()
				zap.S().Errorw("config reload rejected, keeping previous", "err", err)
				continue
			}
			metrics.ConfigReloadTotal.WithLabelValues("ok").Inc()
			onChange(next)
		}
	}
}

// relevant reports whether ev touches a file the loader reads.
func relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != "global.yaml" {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
