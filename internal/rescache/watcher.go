package rescache

import (
	"strings"

	"github.com/fsnotify/fsnotify"

	"scout/internal/logging"
)

// WatchProject invalidates the project's cached answers whenever a
// file at the top of its tree changes. The watch is non-recursive:
// the files that change answers most (manifests, lockfiles, compose
// files) live at the root.
func (c *Cache) WatchProject(root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return err
	}

	c.mu.Lock()
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	go c.watchLoop(w, root)
	logging.Cache("watching %s for changes", root)
	return nil
}

func (c *Cache) watchLoop(w *fsnotify.Watcher, root string) {
	for {
		select {
		case <-c.stop:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			// The engine's own state directory churns constantly.
			if strings.Contains(ev.Name, ".scout") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				logging.CacheDebug("change in %s (%s)", ev.Name, ev.Op)
				c.InvalidateProject(root)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logging.CacheWarn("watcher error: %v", err)
		}
	}
}
