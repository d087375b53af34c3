package indexer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docqa-ai/internal/contextutil"
)

// DefaultDebounce is how long a file must be quiet before it is re-indexed.
const DefaultDebounce = 500 * time.Millisecond

// Indexer is the part of Pipeline the watcher drives.
type Indexer interface {
	IndexFile(ctx context.Context, path string) (*IndexResult, error)
	Remove(ctx context.Context, path string) error
}

type changeKind int

const (
	changeNone changeKind = iota
	changeUpsert
	changeRemove
)

// Watcher re-indexes documents as they change on disk.
type Watcher struct {
	dir      string
	indexer  Indexer
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher for dir. Non-positive debounce selects DefaultDebounce.
func NewWatcher(dir string, indexer Indexer, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		indexer:  indexer,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Run watches the folder until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logger.InfoContext(ctx, "watching documents folder", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.WarnContext(ctx, "watcher error", "error", err)
		}
	}
}

// handle schedules the indexing action for one event, coalescing bursts of
// writes to the same file.
func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	kind := classifyEvent(event)
	if kind == changeNone {
		return
	}

	path := event.Name
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.apply(ctx, path, kind)
	})
}

func (w *Watcher) apply(ctx context.Context, path string, kind changeKind) {
	logger := contextutil.LoggerFromContext(ctx)
	if ctx.Err() != nil {
		return
	}

	switch kind {
	case changeUpsert:
		if _, err := w.indexer.IndexFile(ctx, path); err != nil {
			logger.ErrorContext(ctx, "failed to index changed file", "path", path, "error", err)
		}
	case changeRemove:
		if err := w.indexer.Remove(ctx, path); err != nil {
			logger.ErrorContext(ctx, "failed to remove deleted file", "path", path, "error", err)
		}
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// classifyEvent maps an fsnotify event to an indexing action. Hidden and
// unsupported files are ignored, as are chmod-only events.
func classifyEvent(event fsnotify.Event) changeKind {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !IsSupported(name) {
		return changeNone
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return changeRemove
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return changeUpsert
	default:
		return changeNone
	}
}
