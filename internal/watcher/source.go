package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch modes reported by Mode.
const (
	ModeFsnotify = "fsnotify"
	ModePolling  = "polling"
)

// SourceWatcher watches one file and runs a handler after it changes.
type SourceWatcher struct {
	path      string
	handler   Handler
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger

	reloads  atomic.Uint64
	failures atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewSourceWatcher creates a watcher for path. The file need not exist yet,
// but its directory must.
func NewSourceWatcher(path string, opts Options, handler Handler) (*SourceWatcher, error) {
	if handler == nil {
		return nil, errors.New("watcher handler is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}
	if _, err := os.Stat(filepath.Dir(abs)); err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	opts = opts.WithDefaults()
	w := &SourceWatcher{
		path:      abs,
		handler:   handler,
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		logger:    slog.Default(),
		stopCh:    make(chan struct{}),
	}

	if !opts.ForcePolling {
		w.fsWatcher = newDirWatcher(filepath.Dir(abs))
	}
	return w, nil
}

// newDirWatcher returns nil when fsnotify is unavailable for dir.
func newDirWatcher(dir string) *fsnotify.Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("fsnotify_unavailable", slog.String("error", err.Error()))
		return nil
	}
	if err := fsw.Add(dir); err != nil {
		slog.Warn("fsnotify_add_failed",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		_ = fsw.Close()
		return nil
	}
	return fsw
}

// Path returns the absolute path being watched.
func (w *SourceWatcher) Path() string {
	return w.path
}

// Mode reports whether fsnotify or polling is in use.
func (w *SourceWatcher) Mode() string {
	if w.fsWatcher != nil {
		return ModeFsnotify
	}
	return ModePolling
}

// Reloads returns how many handler calls succeeded.
func (w *SourceWatcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Failures returns how many handler calls returned an error.
func (w *SourceWatcher) Failures() uint64 {
	return w.failures.Load()
}

// Run watches until ctx is canceled or Stop is called. It returns nil on Stop
// and ctx.Err() on cancellation.
func (w *SourceWatcher) Run(ctx context.Context) error {
	w.logger.Info("watch_started",
		slog.String("path", w.path),
		slog.String("mode", w.Mode()),
		slog.Duration("debounce", w.opts.DebounceWindow))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.dispatch(ctx)
	}()

	var err error
	if w.fsWatcher != nil {
		err = w.runFsnotify(ctx)
	} else {
		err = w.runPolling(ctx)
	}

	_ = w.Stop()
	wg.Wait()
	w.logger.Info("watch_stopped", slog.String("path", w.path))
	return err
}

// Stop stops the watcher. Safe to call multiple times.
func (w *SourceWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.debouncer.Stop()
		if w.fsWatcher != nil {
			err = w.fsWatcher.Close()
		}
	})
	return err
}

// dispatch runs the handler for each debounced event, one at a time.
func (w *SourceWatcher) dispatch(ctx context.Context) {
	for event := range w.debouncer.Output() {
		if ctx.Err() != nil {
			continue
		}
		start := time.Now()
		if err := w.handler(ctx, event); err != nil {
			w.failures.Add(1)
			w.logger.Warn("reload_failed",
				slog.String("path", event.Path),
				slog.String("op", event.Operation.String()),
				slog.String("error", err.Error()))
			continue
		}
		w.reloads.Add(1)
		w.logger.Info("reload_completed",
			slog.String("path", event.Path),
			slog.String("op", event.Operation.String()),
			slog.Duration("duration", time.Since(start)))
	}
}

func (w *SourceWatcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

// handleFsnotifyEvent keeps events for the watched file and converts them.
func (w *SourceWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: w.path, Operation: op, Timestamp: time.Now()})
}

// fileState is what polling compares between ticks.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

func (w *SourceWatcher) stat() fileState {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}

func (w *SourceWatcher) runPolling(ctx context.Context) error {
	last := w.stat()

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			cur := w.stat()
			if op, changed := diffState(last, cur); changed {
				w.debouncer.Add(FileEvent{Path: w.path, Operation: op, Timestamp: time.Now()})
			}
			last = cur
		}
	}
}

// diffState reports the operation that turns prev into cur.
func diffState(prev, cur fileState) (Operation, bool) {
	switch {
	case !prev.exists && cur.exists:
		return OpCreate, true
	case prev.exists && !cur.exists:
		return OpDelete, true
	case cur.exists && (!cur.modTime.Equal(prev.modTime) || cur.size != prev.size):
		return OpModify, true
	default:
		return 0, false
	}
}
