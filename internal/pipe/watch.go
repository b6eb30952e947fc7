package pipe

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// WaitForServer blocks until a pipe for name exists in dir or ctx is done.
func WaitForServer(ctx context.Context, dir, name string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// Checked after the watch is in place so a pipe created in between is
	// not missed.
	if Exists(dir, name) {
		return nil
	}

	path := Path(dir, name)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if event.Name == path && event.Has(fsnotify.Create) && Exists(dir, name) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
}
