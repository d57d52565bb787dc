package biz

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/coursechat-io/coursechat/pkg/infra/pool"
	"github.com/coursechat-io/coursechat/pkg/logger"
)

// watchDebounce is how long a file must stay quiet before re-ingestion.
// Editors and copies fire several write events per save.
const watchDebounce = 2 * time.Second

// DocsWatcher watches the docs directory and re-ingests changed course
// documents on the ingest worker pool.
type DocsWatcher struct {
	watcher *fsnotify.Watcher
	indexer *Indexer
	dir     string

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewDocsWatcher creates a watcher for the given directory.
func NewDocsWatcher(indexer *Indexer, dir string) (*DocsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &DocsWatcher{
		watcher: w,
		indexer: indexer,
		dir:     dir,
		timers:  make(map[string]*time.Timer),
	}, nil
}

// Start runs the event loop on the background pool, falling back to a
// plain goroutine when the pool is unavailable.
func (w *DocsWatcher) Start() {
	if err := pool.SubmitToType(pool.BackgroundPool, w.loop); err != nil {
		logger.Warnw("background pool unavailable, running watcher on goroutine",
			"error", err.Error(),
		)
		go w.loop()
	}
	logger.Infow("watching docs directory", "dir", w.dir)
}

func (w *DocsWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !documentExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("docs watcher error", "error", err.Error())
		}
	}
}

// schedule (re)arms the debounce timer for one file.
func (w *DocsWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		w.ingest(path)
	})
}

func (w *DocsWatcher) ingest(path string) {
	task := func() {
		logger.Infow("document changed, re-ingesting", "file", filepath.Base(path))
		if _, _, err := w.indexer.ReingestFile(context.Background(), path); err != nil {
			logger.Warnw("failed to ingest changed document",
				"file", filepath.Base(path),
				"error", err.Error(),
			)
		}
	}
	if err := pool.SubmitToType(pool.IngestPool, task); err != nil {
		logger.Warnw("ingest pool unavailable, running inline", "error", err.Error())
		task()
	}
}

// Close stops the watcher and cancels pending timers.
func (w *DocsWatcher) Close() error {
	w.mu.Lock()
	w.closed = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
