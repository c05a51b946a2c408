package repo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-analyzes the session's checkout when files change. Changes
// are debounced so bursts of writes trigger a single refresh. When the
// session loads a different repository the watch set follows it.
type Watcher struct {
	session  *Session
	watcher  *fsnotify.Watcher
	debounce time.Duration

	root string // checkout currently being watched

	pendingMu sync.Mutex
	pendingAt time.Time
	pending   bool
}

// NewWatcher creates a watcher for the session's current checkout.
func NewWatcher(session *Session, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		session:  session,
		watcher:  fsw,
		debounce: debounce,
	}, nil
}

// Watch blocks until the context is cancelled, refreshing the session when
// the checkout settles after changes. Watching may start before a
// repository is loaded; the watch set is armed once one is.
func (w *Watcher) Watch(ctx context.Context) error {
	w.root = w.session.Root()
	if w.root != "" {
		if err := w.addWatchDirs(w.root); err != nil {
			return err
		}
		slog.Info("watching checkout for changes", "dir", w.root)
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping watcher")
			return w.watcher.Close()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) addWatchDirs(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			slog.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return
	}

	// New directories need to be watched too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.watcher.Add(event.Name)
		}
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingAt = time.Now()
	w.pendingMu.Unlock()
	slog.Debug("checkout changed", "path", event.Name, "op", event.Op.String())
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if root := w.session.Root(); root != w.root {
				w.rearm(root)
				continue
			}

			w.pendingMu.Lock()
			ready := w.pending && time.Since(w.pendingAt) >= w.debounce
			if ready {
				w.pending = false
			}
			w.pendingMu.Unlock()

			if ready {
				if err := w.session.Refresh(); err != nil {
					slog.Warn("refresh after change failed", "error", err)
				}
			}
		}
	}
}

// rearm moves the watch set to a newly loaded checkout.
func (w *Watcher) rearm(root string) {
	for _, path := range w.watcher.WatchList() {
		_ = w.watcher.Remove(path)
	}

	w.pendingMu.Lock()
	w.pending = false
	w.pendingMu.Unlock()

	w.root = root
	if root == "" {
		return
	}
	if err := w.addWatchDirs(root); err != nil {
		slog.Warn("failed to watch new checkout", "dir", root, "error", err)
		return
	}
	slog.Info("watching checkout for changes", "dir", root)
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
