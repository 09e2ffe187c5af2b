// Package watch notices out-of-band changes to the active annotation record.
package watch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch sends path on changed every time the file is written, created,
// renamed over or removed, until ctx is cancelled. The parent directory is
// watched rather than the file itself so replacements by rename are seen.
// Sends never block: a pending notification is enough.
func Watch(ctx context.Context, path string, changed chan<- string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&ops == 0 {
				continue
			}
			select {
			case changed <- target:
			default:
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
