// Package view implements the view lifecycle (C6): wiring the ingest path,
// watermark clock, and fire pipeline together behind Startup/Write/
// Shutdown/Drop, running the background goroutines that turn a ready
// window id into a fired one, and fanning fired rows out to watchers.
//
// Grounded on the teacher's stream.Stream lifecycle (Start/AddSink/Stop,
// an atomic "started" flag, a context-cancellation shutdown) and its
// worker-pool/backpressure plumbing, generalized from a SQL-driven
// streaming engine to the watermark-driven window view of spec.md §4.6.
package view

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/windowview/windowview/condition"
	"github.com/windowview/windowview/errs"
	"github.com/windowview/windowview/fire"
	"github.com/windowview/windowview/ingest"
	"github.com/windowview/windowview/logger"
	"github.com/windowview/windowview/query"
	"github.com/windowview/windowview/storage"
	"github.com/windowview/windowview/types"
	"github.com/windowview/windowview/watermark"
	"github.com/windowview/windowview/windowspec"
)

// Engine runs one window view end to end.
type Engine struct {
	spec *windowspec.Spec
	cfg  types.Config

	clock    *watermark.Clock
	path     *ingest.Path
	pipeline *fire.Pipeline

	inner  *storage.MemoryTable
	target *storage.MemoryTable

	ctx    context.Context
	cancel context.CancelFunc

	pool         *taskPool
	poolStopOnce sync.Once
	wg           sync.WaitGroup

	started        atomic.Bool
	shutdownCalled atomic.Bool

	watchMu  sync.Mutex
	watchers map[*Watcher]struct{}
}

// New builds an Engine for spec, using planner to execute the query the
// view was defined with. cfg.AllowExperimentalWindowView must be true, the
// same gate the teacher's option validation applies to other
// still-evolving features.
func New(spec *windowspec.Spec, planner query.Planner, cfg types.Config) (*Engine, error) {
	if !cfg.AllowExperimentalWindowView {
		return nil, errs.ErrExperimentalWindowViewDisabled
	}

	e := &Engine{
		spec:     spec,
		cfg:      cfg,
		inner:    storage.NewMemoryTable(),
		target:   storage.NewMemoryTable(),
		watchers: make(map[*Watcher]struct{}),
	}
	e.clock = watermark.NewClock(spec)
	// onReady is nil: the watermark clock already pushes every window id a
	// batch drains (and every lateness reenqueue) onto its own fire queue,
	// and fireEventLoop is the single goroutine that drains that queue.
	// Submitting here too would fire each window twice.
	e.path = ingest.NewPath(spec, e.clock, e.inner, planner, cfg.LockAcquireTimeout, nil)
	e.pipeline = fire.NewPipeline(spec, planner, e.inner, e.target, e.broadcast)
	return e, nil
}

// SetFilter installs an optional row-level predicate on the ingest path.
func (e *Engine) SetFilter(filter condition.Condition) {
	e.path.SetFilter(filter)
}

// Inner returns the view's inner table (the raw, not-yet-fired rows).
func (e *Engine) Inner() storage.Table { return e.inner }

// Target returns the view's target table (the accumulated fired output).
func (e *Engine) Target() storage.Table { return e.target }

// Startup starts the background goroutines: fireEvent (drains the
// watermark clock's ready queue), fireProc (a Proctime view's wall-clock
// heartbeat advancing that same clock), cleanup (drops rows below the
// cleanup bound), and a watcher heartbeat ticker.
func (e *Engine) Startup(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errs.ErrAlreadyStarted
	}

	e.ctx, e.cancel = context.WithCancel(ctx)
	e.pool = newTaskPool(e.ctx, 4, e.pipeline.Fire)

	e.wg.Add(1)
	go e.fireEventLoop()

	if e.spec.TimeMode == windowspec.Proctime {
		e.wg.Add(1)
		go e.fireProcLoop()
	}

	e.wg.Add(1)
	go e.cleanupLoop()

	e.wg.Add(1)
	go e.heartbeatLoop()

	return nil
}

// Write inserts rows through the view's ingest path.
func (e *Engine) Write(ctx context.Context, rows []types.Row) error {
	if e.shutdownCalled.Load() {
		return errs.ErrViewShutDown
	}
	return e.path.Write(ctx, rows)
}

// Watch registers a new bounded subscriber to fired output.
func (e *Engine) Watch(limit int) *Watcher {
	w := newWatcher(limit, e.unregisterWatcher)
	e.watchMu.Lock()
	e.watchers[w] = struct{}{}
	e.watchMu.Unlock()
	return w
}

// Shutdown stops every background goroutine and closes all watchers. It is
// idempotent: a second call returns nil immediately.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.shutdownCalled.CompareAndSwap(false, true) {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.pool != nil {
		e.poolStopOnce.Do(e.pool.Stop)
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Close runs outside watchMu: Watcher.Close calls unregisterWatcher,
	// which takes watchMu itself.
	e.watchMu.Lock()
	open := make([]*Watcher, 0, len(e.watchers))
	for w := range e.watchers {
		open = append(open, w)
	}
	e.watchers = make(map[*Watcher]struct{})
	e.watchMu.Unlock()
	for _, w := range open {
		w.Close()
	}
	return nil
}

// Drop shuts the view down and discards both the inner and target tables.
func (e *Engine) Drop(ctx context.Context) error {
	if err := e.Shutdown(ctx); err != nil {
		return err
	}
	_ = e.inner.Alter(func(types.Row) bool { return false })
	_ = e.target.Alter(func(types.Row) bool { return false })
	return nil
}

func (e *Engine) fireEventLoop() {
	defer e.wg.Done()
	for {
		// Wait at most 5s per iteration; a timeout just loops again.
		waitCtx, cancel := context.WithTimeout(e.ctx, 5*time.Second)
		ready := e.clock.Wait(waitCtx)
		cancel()
		if !ready {
			select {
			case <-e.ctx.Done():
				return
			default:
				continue
			}
		}
		for {
			w, ok := e.clock.PopReady()
			if !ok {
				break
			}
			e.pool.Submit(e.ctx, w)
		}
	}
}

func (e *Engine) fireProcLoop() {
	defer e.wg.Done()
	interval := e.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			now := uint32(time.Now().Unix())
			e.clock.UpdateMaxTimestamp(now)
			// UpdateMaxWatermark already pushes every window id it drains
			// onto the clock's own fire queue; fireEventLoop is the sole
			// consumer of that queue, so the returned ids are not
			// resubmitted here — doing so would fire each window twice.
			if _, err := e.clock.UpdateMaxWatermark(now); err != nil {
				logger.Warn("windowview: proctime heartbeat advance: %v", err)
			}
		}
	}
}

func (e *Engine) cleanupLoop() {
	defer e.wg.Done()
	interval := e.cfg.CleanInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			bound, err := e.clock.CleanupBound()
			if err != nil {
				logger.Warn("windowview: computing cleanup bound: %v", err)
				continue
			}
			// bound is a window_id cutoff (spec.md §4.3): keep every row whose
			// window has not yet been garbage-collected, not every row whose
			// raw timestamp is recent — window_id = UpperBound(timestamp) ≥
			// timestamp, so filtering on Timestamp would drop still-live
			// partial-state rows early.
			if err := e.inner.Alter(func(r types.Row) bool { return r.WindowID >= bound }); err != nil {
				logger.Warn("windowview: cleanup: %v", err)
			}
		}
	}
}

func (e *Engine) heartbeatLoop() {
	defer e.wg.Done()
	interval := e.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.watchMu.Lock()
			for w := range e.watchers {
				w.beat()
			}
			e.watchMu.Unlock()
		}
	}
}

func (e *Engine) unregisterWatcher(w *Watcher) {
	e.watchMu.Lock()
	delete(e.watchers, w)
	e.watchMu.Unlock()
}

func (e *Engine) broadcast(rows []types.Row) {
	e.watchMu.Lock()
	watchers := make([]*Watcher, 0, len(e.watchers))
	for w := range e.watchers {
		watchers = append(watchers, w)
	}
	e.watchMu.Unlock()

	for _, w := range watchers {
		w.push(rows)
	}
}
