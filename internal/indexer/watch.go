package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval batches bursts of filesystem events (editors write,
// rename, and chmod in quick succession) into one re-index pass.
const debounceInterval = 500 * time.Millisecond

// Watch re-indexes changed files until the context is cancelled. It
// performs a full index first so the graph is never stale at startup.
func (ix *Indexer) Watch(ctx context.Context) error {
	if _, err := ix.Index(ctx); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := ix.watchTree(w, ix.Root); err != nil {
		return err
	}

	pending := make(map[string]fsnotify.Op)
	timer := time.NewTimer(debounceInterval)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			ix.handleEvent(w, ev, pending)
			if len(pending) > 0 {
				timer.Reset(debounceInterval)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if ix.Log != nil {
				ix.Log.Warn("watch_error", "filesystem watcher error", map[string]any{"error": err.Error()})
			}

		case <-timer.C:
			ix.flush(ctx, pending)
			pending = make(map[string]fsnotify.Op)
		}
	}
}

func (ix *Indexer) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event, pending map[string]fsnotify.Op) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !ix.skipDir(filepath.Base(ev.Name)) {
				_ = ix.watchTree(w, ev.Name)
			}
			return
		}
	}
	if ix.parsers().ForFile(ev.Name) == nil || isTestFile(filepath.Base(ev.Name)) {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		pending[ev.Name] |= ev.Op
	}
}

func (ix *Indexer) flush(ctx context.Context, pending map[string]fsnotify.Op) {
	for p, op := range pending {
		var err error
		if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			err = ix.Remove(ctx, p)
		} else {
			err = ix.IndexFile(ctx, p)
		}
		if err != nil && ix.Log != nil {
			ix.Log.Warn("watch_reindex_failed", "could not refresh file in graph",
				map[string]any{"path": p, "error": err.Error()})
		}
	}
	if len(pending) > 0 && ix.Log != nil {
		ix.Log.Debug("watch_flush", "re-indexed changed files", map[string]any{"files": len(pending)})
	}
}

// watchTree registers root and every indexable directory under it.
func (ix *Indexer) watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && ix.skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}

func (ix *Indexer) skipDir(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	switch name {
	case "vendor", "node_modules", "testdata", "dist", "target", "__pycache__":
		return true
	}
	for _, ex := range ix.Excludes {
		if name == ex {
			return true
		}
	}
	return false
}
