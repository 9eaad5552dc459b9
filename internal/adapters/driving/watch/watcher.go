// Package watch turns filesystem events under the library folder into
// sync triggers.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/brokerdesk/internal/adapters/driven/filestore"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Watcher watches a directory tree and calls trigger on relevant changes.
// Bursts of events are expected; the trigger target debounces them.
type Watcher struct {
	root    string
	trigger func()
	fsw     *fsnotify.Watcher
}

// New creates a watcher on root and every visible subdirectory.
func New(root string, trigger func()) (*Watcher, error) {
	if trigger == nil {
		return nil, errors.New("watch: trigger is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve %s: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{root: abs, trigger: trigger, fsw: fsw}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run forwards events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	logger.Info("Watching %s for changes", w.root)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(ev) {
				w.trigger()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// handleEvent reports whether ev should trigger a sync pass.
// New directories are added to the watch set.
func (w *Watcher) handleEvent(ev fsnotify.Event) bool {
	if w.hidden(ev.Name) {
		return false
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				logger.Warn("watch: %v", err)
			}
			// Files copied in with the directory produced no events of their own.
			return true
		}
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// hidden reports whether path is hidden relative to the root.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return filestore.IsHidden(rel)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.hidden(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		logger.Debug("watch: added %s", path)
		return nil
	})
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	return w.fsw.WatchList()
}
