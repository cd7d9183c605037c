package pages

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Invalidator drops cached pages. *Resolver implements it.
type Invalidator interface {
	Invalidate(keys ...Key)
}

// Watcher invalidates cached pages when their fragment files change on disk.
// It is meant for dev mode with an on-disk views directory.
type Watcher struct {
	dir     string
	target  Invalidator
	logger  *zap.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, target Invalidator, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:     dir,
		target:  target,
		logger:  logger,
		watcher: w,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.running = true
	go w.run(ctx)
	w.logger.Info("watching views", zap.String("dir", w.dir))
	return nil
}

// Stop ends the watch loop and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("close views watcher", zap.Error(err))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("views watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	key, ok := keyFromFile(event.Name)
	if !ok {
		return
	}
	w.target.Invalidate(key)
	w.logger.Info("fragment changed", zap.String("key", string(key)), zap.String("op", event.Op.String()))
}

func keyFromFile(name string) (Key, bool) {
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	if ext != ".html" && ext != ".md" {
		return "", false
	}
	key := Key(strings.TrimSuffix(base, ext))
	if !Known(key) {
		return "", false
	}
	return key, true
}
