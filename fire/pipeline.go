// Package fire implements the fire pipeline (C5): given a window id that
// has become ready, fetch its contributing rows from the inner table, run
// them through the planner's inner-fetch and final stages, and push the
// result to the target table and any attached watchers.
//
// Grounded on the teacher's (now superseded) planner/planer.go
// BaseLogicalPlan.Apply staged-pipeline pattern — a plan is a chain of
// stages each consuming the previous stage's output — adapted here to the
// three fixed stages spec.md §4.5 names instead of an arbitrary logical
// plan tree.
package fire

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/windowview/windowview/logger"
	"github.com/windowview/windowview/query"
	"github.com/windowview/windowview/storage"
	"github.com/windowview/windowview/types"
	"github.com/windowview/windowview/windowspec"
)

// RowsFunc receives a window's materialized output rows, e.g. to fan them
// out to watchers (view.Engine wires this).
type RowsFunc func(rows []types.Row)

// Pipeline runs the fire algorithm for one view. Concurrent Fire calls for
// the same view are serialized by mu, matching the teacher's single mutex
// guarding a Stream's whole processing pipeline. max_fired_watermark is
// tracked by the watermark clock itself as part of draining a window into
// the fire queue (spec.md §4.3), so the pipeline has no clock dependency of
// its own.
type Pipeline struct {
	mu sync.Mutex

	spec    *windowspec.Spec
	planner query.Planner
	inner   storage.Table
	target  storage.Table
	onRows  RowsFunc
}

// NewPipeline builds a fire pipeline.
func NewPipeline(spec *windowspec.Spec, planner query.Planner, inner, target storage.Table, onRows RowsFunc) *Pipeline {
	return &Pipeline{
		spec:    spec,
		planner: planner,
		inner:   inner,
		target:  target,
		onRows:  onRows,
	}
}

// Fire runs the six-step algorithm of spec.md §4.5 for the window ending
// at w.
func (p *Pipeline) Fire(ctx context.Context, w uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Step 1: window_start = add(w, window_kind, -window_n), the start of
	// the window ending at w; read the whole inner table (spec.md §4.5
	// step 1).
	windowStart, err := p.spec.WindowStart(w)
	if err != nil {
		return fmt.Errorf("windowview: computing window start for %d: %w", w, err)
	}

	allRows, err := p.inner.ReadSortedByTimestamp()
	if err != nil {
		return fmt.Errorf("windowview: reading inner table: %w", err)
	}

	// Step 2: select rows by the window_id selector predicate: Tumble
	// selects window_id == w; Hop selects window_id among w's contributing
	// slice boundaries (spec.md §4.5 step 2).
	fetched, err := p.planner.InnerFetch().Apply(allRows, w)
	if err != nil {
		return fmt.Errorf("windowview: inner-fetch plan for window %d: %w", w, err)
	}

	// Step 3+4: project (window_start, w) onto every output row and run
	// the final plan's group/aggregate stage.
	result, err := p.planner.Final().Apply(fetched, windowStart, w)
	if err != nil {
		return fmt.Errorf("windowview: final plan for window %d: %w", w, err)
	}

	start := time.Unix(int64(windowStart), 0).UTC()
	end := time.Unix(int64(w), 0).UTC()
	slot := types.NewTimeSlot(&start, &end)
	logger.Debug("windowview: fired window %d (%s, %s] slot=%x rows=%d", w, start, end, slot.Hash(), len(result))

	// Step 5+6: write to the target table and notify watchers. A failure
	// here is logged and swallowed rather than propagated: the window has
	// already been computed, and a stalled watcher or a target-table error
	// must not block firing of subsequent windows.
	if len(result) > 0 {
		if err := p.target.Write(result); err != nil {
			logger.Warn("windowview: writing target table for window %d: %v", w, err)
		}
		if p.onRows != nil {
			p.onRows(result)
		}
	}

	return nil
}
