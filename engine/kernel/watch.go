package kernel

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-space/engine/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period Watch waits for after the last change before rebuilding.
const DefaultDebounce = 150 * time.Millisecond

// Watch calls rebuild whenever a .wgsl file under dir is written, created, renamed or removed.
// Bursts of events are coalesced into one rebuild after a quiet period of debounce. Rebuild errors
// are logged and do not stop the watch. Watch blocks until ctx is done.
//
// Parameters:
//   - ctx: cancels the watch
//   - dir: the kernel source directory
//   - debounce: the quiet period; zero uses DefaultDebounce
//   - rebuild: the build to run
//
// Returns:
//   - error: an error if the watcher could not be started, otherwise ctx.Err()
func Watch(ctx context.Context, dir string, debounce time.Duration, rebuild func() error) error {
	log := logging.For("kernelc")
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	log.Infof("watching %s", dir)

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".wgsl") || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debugf("%s %s", ev.Op, ev.Name)
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watch error")
		case <-timer.C:
			if err := rebuild(); err != nil {
				log.WithError(err).Error("rebuild failed")
			}
		}
	}
}
