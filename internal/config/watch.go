package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFile monitors path and calls onChange after writes have settled
// for the debounce interval. It runs until ctx is cancelled.
//
// Editors and analysis software often save via rename (atomic save), so
// create events count as writes and the path is re-added to the watcher
// after each event in case the inode was replaced.
func WatchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path, "debounce", debounce)

	// The timer is created stopped; each relevant event re-arms it, so
	// a burst of writes collapses into one onChange call.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)
			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case <-timer.C:
			slog.Info("config: watched file changed", "path", path)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
