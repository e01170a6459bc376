// Package watch re-runs dead-code elimination on files as they change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/panbanda/eliminator/pkg/transform"
)

// DefaultDebounce is how long a file must stay quiet before it is swept.
const DefaultDebounce = 500 * time.Millisecond

// Handler receives the outcome of sweeping one changed file.
type Handler func(path string, result *transform.Result, err error)

// Watcher monitors a directory tree and sweeps changed source files.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	transformer *transform.Transformer
	handler     Handler
	logger      *slog.Logger
	debounce    time.Duration
	root        string
	mu          sync.Mutex
	pending     map[string]time.Time
	running     map[string]bool // paths being swept
	done        chan struct{}
	stopOnce    sync.Once
}

// Option is a functional option for configuring Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Zero or less keeps DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher over root. Changed files are swept with tr and the
// outcome is passed to handler. The transformer's config decides which
// files count as sources.
func New(root string, tr *transform.Transformer, handler Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:   fsWatcher,
		transformer: tr,
		handler:     handler,
		logger:      slog.New(slog.DiscardHandler),
		debounce:    DefaultDebounce,
		root:        root,
		pending:     make(map[string]time.Time),
		running:     make(map[string]bool),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds every non-excluded directory under root and blocks, sweeping
// changed files, until ctx is cancelled or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	w.logger.Info("watching for changes", "root", w.root, "dirs", len(w.fsWatcher.WatchList()))

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.done:
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree watches dir and its subdirectories, skipping excluded ones.
func (w *Watcher) addTree(dir string) error {
	excluded := w.transformer.Config().Exclude.Dirs
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && slices.Contains(excluded, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// handleEvent records writes and creates of source files. New directories
// are watched as they appear.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !slices.Contains(w.transformer.Config().Exclude.Dirs, info.Name()) {
				if err := w.addTree(path); err != nil {
					w.logger.Warn("failed to watch directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	if !w.transformer.Config().ShouldProcess(rel) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processDebounced polls for files that have been quiet long enough.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending sweeps files that have been stable for the debounce period.
// A path already being swept stays pending until that sweep finishes.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce && !w.running[path] {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(w.pending, path)
		w.running[path] = true
	}
	w.mu.Unlock()

	for _, path := range ready {
		go w.sweep(ctx, path)
	}
}

func (w *Watcher) sweep(ctx context.Context, path string) {
	defer func() {
		w.mu.Lock()
		delete(w.running, path)
		w.mu.Unlock()
	}()

	w.logger.Debug("file changed", "path", path)

	result, err := w.transformer.TransformFile(ctx, path)
	if err != nil {
		w.logger.Warn("sweep failed", "path", path, "error", err)
	}
	if w.handler != nil {
		w.handler(path, result, err)
	}
}

// Pending returns the number of changed files waiting for their quiet period.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Stop stops the watcher and its debounce loop. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
