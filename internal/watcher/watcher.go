// Package watcher keeps the index in sync with report inbox directories:
// supported files dropped into a watched directory are indexed, removed files
// are deleted from the index.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/pkg/utils"
)

const defaultDebounce = 400 * time.Millisecond

// Sink receives the index and delete operations. *indexer.Indexer implements it.
type Sink interface {
	IndexFile(ctx context.Context, path string) (*models.Source, int, error)
	DeleteFile(ctx context.Context, path string) error
}

// Watcher watches inbox directories and forwards changes to a Sink.
type Watcher struct {
	roots     []string
	sink      Sink
	recursive bool
	debounce  time.Duration
	accept    func(path string) bool
	logger    *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]*time.Timer
	ctx     context.Context
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce sets how long a file must be quiet before it is indexed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive controls whether subdirectories are watched. Default true.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithFilter replaces the default extract.Supported file filter.
func WithFilter(accept func(path string) bool) Option {
	return func(w *Watcher) {
		if accept != nil {
			w.accept = accept
		}
	}
}

// New creates a watcher over roots. Missing roots are created on Start.
func New(roots []string, sink Sink, opts ...Option) *Watcher {
	w := &Watcher{
		sink:      sink,
		recursive: true,
		debounce:  defaultDebounce,
		accept:    extract.Supported,
		logger:    zap.NewNop(),
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Roots returns the watched root directories.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range w.roots {
		if err := os.MkdirAll(root, 0755); err != nil {
			_ = fsw.Close()
			return err
		}
		if err := w.watchTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}
	w.mu.Lock()
	w.fsw = fsw
	w.ctx = ctx
	w.mu.Unlock()
	w.logger.Info("watcher started", zap.Strings("roots", w.roots), zap.Bool("recursive", w.recursive))

	w.wg.Add(1)
	go w.run(ctx, fsw)
	return nil
}

// watchTree adds dir, and its subdirectories when recursive.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, dir string) error {
	if !w.recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive {
				if err := w.watchTree(fsw, path); err != nil {
					w.logger.Warn("watcher failed to add directory", zap.String("path", path), zap.Error(err))
				}
				// Files copied in with the directory produce no events of their own.
				w.schedule(path, true)
			}
			return
		}
		if w.accept(path) {
			w.schedule(path, false)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if !w.accept(path) {
			return
		}
		if err := w.sink.DeleteFile(ctx, path); err != nil {
			w.logger.Warn("watcher delete failed", zap.String("path", path), zap.Error(err))
			return
		}
		w.logger.Info("watcher removed report", zap.String("path", path))
	}
}

// schedule indexes path once it has been quiet for the debounce interval.
// A directory has all its accepted files indexed.
func (w *Watcher) schedule(path string, dir bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		ctx, stopped := w.ctx, w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}
		if dir {
			w.syncDir(ctx, path)
			return
		}
		w.index(ctx, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) index(ctx context.Context, path string) bool {
	src, n, err := w.sink.IndexFile(ctx, path)
	if err != nil {
		w.logger.Warn("watcher index failed", zap.String("path", path), zap.Error(err))
		return false
	}
	w.logger.Info("watcher indexed report", zap.String("path", path), zap.String("id", src.ID), zap.Int("passages", n))
	return true
}

func (w *Watcher) syncDir(ctx context.Context, root string) int {
	var indexed int
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if w.accept(path) && w.index(ctx, path) {
			indexed++
		}
		return nil
	})
	return indexed
}

// Sync indexes every accepted file already present under the roots and
// returns how many were indexed.
func (w *Watcher) Sync(ctx context.Context) int {
	var total int
	for _, root := range w.roots {
		total += w.syncDir(ctx, root)
	}
	return total
}

// Stop stops watching and waits for the event loop to exit. Pending
// debounced files are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		fsw := w.fsw
		w.mu.Unlock()
		close(w.done)
		w.wg.Wait()
		if fsw != nil {
			_ = fsw.Close()
		}
	})
}
