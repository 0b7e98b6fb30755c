// Package ingest implements the insert path (C4): taking newly arrived
// rows, filtering out anything too late to matter, stamping a proctime
// timestamp when the view isn't running on event time, folding them
// through the query engine's mergeable plan, materializing each row's
// window_id, advancing the watermark clock, and finally writing to the
// inner table.
//
// Grounded on the teacher's stream.Stream.Emit/addData path (acquire a
// lock, transform, write, signal) and window/watermark.go's
// lock-then-update-then-broadcast shape, adapted to the explicit
// lateness/proctime/squash pipeline spec.md §4.4 describes.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/windowview/windowview/calendar"
	"github.com/windowview/windowview/condition"
	"github.com/windowview/windowview/logger"
	"github.com/windowview/windowview/query"
	"github.com/windowview/windowview/storage"
	"github.com/windowview/windowview/types"
	"github.com/windowview/windowview/watermark"
	"github.com/windowview/windowview/windowspec"
)

// Clock is the subset of *watermark.Clock the insert path needs; kept as
// an interface for testability. The engine always wires in its real
// watermark.Clock, for Proctime views too: a Proctime view additionally
// drives the same Clock from a wall-clock heartbeat ticker
// (view.Engine.fireProcLoop), but every Write still advances it from the
// batch's now()-stamped rows here.
type Clock interface {
	UpdateMaxTimestamp(t uint32)
	UpdateMaxWatermark(w uint32) ([]uint32, error)
	Reenqueue(w uint32)
	CleanupBound() (uint32, error)
	MaxTimestamp() uint32
	MaxWatermark() uint32
	MaxFiredWatermark() uint32
}

var _ Clock = (*watermark.Clock)(nil)

// ReadyFunc is invoked with the window ids that just became fireable as a
// side effect of a Write call. view.Engine passes nil: its fireEventLoop
// already drains every id Write's clock advance pushes onto the clock's own
// fire queue, so a second direct submission here would fire each window
// twice. ReadyFunc exists for callers (and tests) that want to observe
// readiness without duplicating that consumption.
type ReadyFunc func(windowIDs []uint32)

// Path owns one view's insert pipeline.
type Path struct {
	spec    *windowspec.Spec
	clock   Clock
	inner   storage.Table
	planner query.Planner
	filter  condition.Condition

	lockTimeout time.Duration
	onReady     ReadyFunc
	now         func() time.Time

	locked chan struct{}
}

// NewPath builds an insert path. clock may be nil for a Proctime view.
func NewPath(spec *windowspec.Spec, clock Clock, inner storage.Table, planner query.Planner, lockTimeout time.Duration, onReady ReadyFunc) *Path {
	p := &Path{
		spec:        spec,
		clock:       clock,
		inner:       inner,
		planner:     planner,
		lockTimeout: lockTimeout,
		onReady:     onReady,
		now:         time.Now,
		locked:      make(chan struct{}, 1),
	}
	p.locked <- struct{}{}
	return p
}

// SetFilter installs an optional WHERE-style predicate (compiled the way
// the teacher's condition.ExprCondition compiles one) evaluated against
// each row's field payload before anything else in the pipeline; rows it
// rejects never reach the watermark clock or the inner table. A nil filter
// (the default) admits every row.
func (p *Path) SetFilter(filter condition.Condition) {
	p.filter = filter
}

// Write runs the seven-step insert pipeline of spec.md §4.4 over rows.
func (p *Path) Write(ctx context.Context, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	// Step 1: acquire the pipeline lock, bounded by LockAcquireTimeout.
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()

	if p.filter != nil {
		admitted := rows[:0:0]
		for _, r := range rows {
			if p.filter.Evaluate(r.Fields) {
				admitted = append(admitted, r)
			}
		}
		rows = admitted
		if len(rows) == 0 {
			return nil
		}
	}

	// Step 2: compute lateness_bound, distinct from the clock's own
	// cleanup_bound (spec.md §4.4 step 2).
	latenessBound, err := p.latenessBound()
	if err != nil {
		return fmt.Errorf("windowview: computing lateness bound: %w", err)
	}

	// Step 3: prepend a filter dropping anything strictly below the bound.
	filtered := rows[:0:0]
	for _, r := range rows {
		if latenessBound > 0 && r.Timestamp < latenessBound {
			logger.Warn("windowview: dropping row at timestamp %d, below lateness bound %d", r.Timestamp, latenessBound)
			continue
		}
		filtered = append(filtered, r)
	}
	if len(filtered) == 0 {
		return nil
	}

	// Step 4: in Proctime mode, stamp every row with a synthetic now()
	// timestamp; in EventTime mode the caller is expected to have already
	// populated Row.Timestamp from the row's event-time column.
	if p.spec.TimeMode == windowspec.Proctime {
		ts := uint32(p.now().Unix())
		for i := range filtered {
			filtered[i].Timestamp = ts
		}
	}

	// Materialize window_id for every admitted row (spec.md §3 data model).
	maxTimestamp := uint32(0)
	for i := range filtered {
		wid, err := p.spec.UpperBound(filtered[i].Timestamp)
		if err != nil {
			return fmt.Errorf("windowview: computing window id: %w", err)
		}
		filtered[i].WindowID = wid
		if filtered[i].Timestamp > maxTimestamp {
			maxTimestamp = filtered[i].Timestamp
		}
	}

	// Step 5: run the mergeable plan (squash/merge against any in-flight
	// partial aggregation state the planner keeps).
	merged, err := p.planner.Mergeable().Apply(filtered)
	if err != nil {
		return fmt.Errorf("windowview: mergeable plan: %w", err)
	}

	// Step 7: write to the inner table. This runs before the watermark
	// advance below (step 6), not after: UpdateMaxWatermark/Reenqueue wake
	// fireEventLoop as soon as they are called, and a woken fire task reads
	// the inner table immediately. Advancing the clock first would let a
	// fire task for this very batch's window run before the batch's rows
	// were actually persisted, recomputing the window without them.
	if err := p.inner.Write(merged); err != nil {
		return fmt.Errorf("windowview: writing inner table: %w", err)
	}

	// Step 6: advance the watermark clock once per batch using the max
	// observed timestamp, collecting newly fireable window ids; rows whose
	// window_id falls below max_fired_watermark are late arrivals and
	// re-enqueue their window for another fire even if it already ran.
	var ready []uint32
	if p.clock != nil {
		p.clock.UpdateMaxTimestamp(maxTimestamp)
		fired, err := p.clock.UpdateMaxWatermark(maxTimestamp)
		if err != nil {
			return fmt.Errorf("windowview: advancing watermark: %w", err)
		}
		ready = append(ready, fired...)

		if p.spec.Lateness != nil {
			maxFired := p.clock.MaxFiredWatermark()
			for _, r := range merged {
				if r.WindowID < maxFired {
					p.clock.Reenqueue(r.WindowID)
					ready = append(ready, r.WindowID)
				}
			}
		}
	}

	if len(ready) > 0 && p.onReady != nil {
		p.onReady(ready)
	}
	return nil
}

// latenessBound implements spec.md §4.4 step 2, a formula distinct from the
// clock's cleanup_bound: event-time with lateness configured bounds on
// max_timestamp minus the lateness tolerance (further tightened by the
// slide width under a Bounded watermark policy); event-time without
// lateness bounds on the last fired watermark; proctime has no bound.
func (p *Path) latenessBound() (uint32, error) {
	if p.clock == nil || p.spec.TimeMode == windowspec.Proctime {
		return 0, nil
	}

	maxWatermark := p.clock.MaxWatermark()
	if p.spec.Lateness == nil {
		return p.clock.MaxFiredWatermark(), nil
	}

	maxTimestamp := p.clock.MaxTimestamp()
	if maxTimestamp == 0 {
		return 0, nil
	}

	lb, err := calendar.Add(maxTimestamp, p.spec.Lateness.Kind, -p.spec.Lateness.N, p.spec.Location)
	if err != nil {
		return 0, err
	}

	if p.spec.Watermark.Kind == windowspec.Bounded && maxWatermark > 0 {
		bounded, err := calendar.Add(maxWatermark, p.spec.SlideKind, -p.spec.SlideN, p.spec.Location)
		if err != nil {
			return 0, err
		}
		if bounded < lb {
			lb = bounded
		}
	}
	return lb, nil
}

func (p *Path) acquire(ctx context.Context) error {
	timeout := p.lockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.locked:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("windowview: timed out acquiring insert lock after %s", timeout)
	}
}

func (p *Path) release() {
	p.locked <- struct{}{}
}
