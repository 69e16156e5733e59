// Package watch converts descriptors as the IDE integration regenerates them.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/sdkproj/internal/descriptor"
	"github.com/leapstack-labs/sdkproj/internal/pipeline"
)

// DefaultDebounce is the quiet period after the last write before converting.
const DefaultDebounce = 250 * time.Millisecond

// FileConverter is satisfied by *pipeline.Converter.
type FileConverter interface {
	ConvertFile(ctx context.Context, path string, mode descriptor.Mode) (pipeline.Result, error)
}

// Config configures a Watcher.
type Config struct {
	Dir       string
	Mode      descriptor.Mode
	Debounce  time.Duration
	Converter FileConverter
	Logger    *slog.Logger
	// OnResult is called after every conversion attempt. Optional.
	OnResult func(pipeline.Result, error)
}

// Watcher watches one directory for descriptor writes.
type Watcher struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

// New creates a Watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Converter == nil {
		return nil, fmt.Errorf("watch requires a converter")
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{cfg: cfg, logger: logger, timers: make(map[string]*time.Timer)}, nil
}

// Run blocks until ctx is cancelled. Pending conversions are dropped on exit,
// in-flight ones are waited for.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("watching for descriptor changes", "dir", w.cfg.Dir, "mode", w.cfg.Mode.String())

	defer w.wg.Wait()
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !pipeline.IsDescriptorPath(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// schedule (re)arms the debounce timer of path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armLocked(ctx, path)
}

// armLocked replaces the timer of path. w.mu must be held.
func (w *Watcher) armLocked(ctx context.Context, path string) {
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		// A timer that fired while being replaced is superseded by the new one.
		if w.timers[path] != timer {
			w.mu.Unlock()
			return
		}
		delete(w.timers, path)
		if ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		w.convert(ctx, path)
	})
	w.timers[path] = timer
}

func (w *Watcher) convert(ctx context.Context, path string) {
	w.logger.Debug("descriptor changed", "path", path)
	res, err := w.cfg.Converter.ConvertFile(ctx, path, w.cfg.Mode)
	if err != nil {
		w.logger.Error("conversion failed", "path", path, "error", err)
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(res, err)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
