// Package watcher reloads the dataset when its file changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"bikedash/internal/infrastructure"
	"bikedash/internal/rentals"
)

// DefaultDebounce is used when no debounce is configured
const DefaultDebounce = 500 * time.Millisecond

// Reloader re-reads the dataset
type Reloader interface {
	Reload(ctx context.Context) (*rentals.LoadReport, error)
}

// Stats tracks watcher activity
type Stats struct {
	Events        int
	Reloads       int
	Failures      int
	Errors        int
	LastEventTime time.Time
	LastEventOp   string
}

// Watcher watches the dataset's directory and calls Reload once a burst of
// changes to the dataset file has settled.
type Watcher struct {
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	reloader Reloader
	path     string
	dir      string
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	closed   bool
	stats    Stats
	logger   *slog.Logger
}

// New creates a watcher for the dataset at path. The directory is watched
// rather than the file so atomic replaces are seen.
func New(path string, reloader Reloader, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve dataset path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		reloader: reloader,
		path:     abs,
		dir:      filepath.Dir(abs),
		debounce: debounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger.With(slog.String("component", "watcher")),
	}, nil
}

// Start begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	if w.closed {
		w.mu.Unlock()
		return fmt.Errorf("watcher for %s already stopped", w.path)
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.logger.InfoContext(ctx, "watching dataset",
		slog.String("path", w.path),
		slog.Duration("debounce", w.debounce))

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit. Calling it
// again is a no-op.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	wasRunning := w.running
	w.running = false
	w.closed = true
	w.mu.Unlock()

	if wasRunning {
		close(w.stopCh)
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	w.logger.Info("watcher stopped")
	return nil
}

// Stats returns a copy of the watcher's counters
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

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
			if !w.relevant(event) {
				continue
			}
			w.record(event)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
			w.logger.ErrorContext(ctx, "file watcher error", slog.String("error", err.Error()))

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

func (w *Watcher) record(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Events++
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventOp = event.Op.String()
}

func (w *Watcher) reload(ctx context.Context) {
	ctx = infrastructure.EnsureTraceID(ctx)

	report, err := w.reloader.Reload(ctx)

	w.mu.Lock()
	if err != nil {
		w.stats.Failures++
	} else {
		w.stats.Reloads++
	}
	w.mu.Unlock()

	if err != nil {
		// the reloader logs and broadcasts failures itself
		w.logger.DebugContext(ctx, "dataset reload after file change failed", slog.String("error", err.Error()))
		return
	}
	w.logger.InfoContext(ctx, "dataset reloaded after file change", slog.Int("rows", report.Rows))
}
