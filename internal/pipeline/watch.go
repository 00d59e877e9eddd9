package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgallion1/citectx/internal/parser"
)

// DefaultSettle is how long a file must go without writes before it is
// processed.
const DefaultSettle = 500 * time.Millisecond

// Watcher extracts supported files as they appear in a directory.
type Watcher struct {
	dir    string
	worker *Worker
	log    *slog.Logger
	handle func(Result)
	settle time.Duration

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher over dir. handle is called once per
// processed file, from a single goroutine at a time.
func NewWatcher(dir string, w *Worker, log *slog.Logger, handle func(Result)) *Watcher {
	return &Watcher{
		dir:     dir,
		worker:  w,
		log:     log,
		handle:  handle,
		settle:  DefaultSettle,
		pending: make(map[string]*time.Timer),
	}
}

// SetSettle overrides the quiet period before a changed file is read.
func (w *Watcher) SetSettle(d time.Duration) {
	w.settle = d
}

// Start processes files already in the directory, then watches it until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", w.dir, err)
	}
	w.watcher = watcher
	w.stopChan = make(chan struct{})

	existing, err := w.scan()
	if err != nil {
		watcher.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for _, path := range existing {
			w.process(ctx, path)
		}
		w.watchLoop(ctx)
	}()
	return nil
}

// Stop ends the watch loop and waits for in-flight work.
func (w *Watcher) Stop() {
	if w.stopChan == nil {
		return
	}
	close(w.stopChan)
	w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// watchLoop handles file system events. Changed files are processed once
// their settle timer fires.
func (w *Watcher) watchLoop(ctx context.Context) {
	ready := make(chan string, 16)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !parser.IsSupportedExtension(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write:
				w.schedule(event.Name, ready)
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				w.cancel(event.Name)
			}

		case path := <-ready:
			w.process(ctx, path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) schedule(path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	stop := w.stopChan
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case ready <- path:
		case <-stop:
		}
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

func (w *Watcher) process(ctx context.Context, path string) {
	res := RunBatch(ctx, w.worker, []Input{{Path: path}}, 1)[0]
	if res.Err == nil {
		w.log.Info("processed file", "path", path, "rows", len(res.Rows))
	}
	if w.handle != nil {
		w.handle(res)
	}
}
