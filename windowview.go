// Package windowview implements the Streaming Window View Engine: a
// watermark-driven tumbling/hopping window aggregation view, built as a
// standalone engine the way the teacher's rsql package builds a standalone
// streaming SQL engine around a parsed query.
//
// A View owns an insert path (ingest), a watermark clock, a fire pipeline,
// and the pair of inner/target tables those three collaborate over; see
// SPEC_FULL.md for the full component breakdown and DESIGN.md for how each
// package maps onto the teacher and the rest of the example corpus.
package windowview

import (
	"context"

	"github.com/windowview/windowview/condition"
	"github.com/windowview/windowview/query"
	"github.com/windowview/windowview/storage"
	"github.com/windowview/windowview/types"
	"github.com/windowview/windowview/view"
	"github.com/windowview/windowview/windowspec"
)

// View is a running window view: the external handle returned by New.
type View struct {
	engine *view.Engine
}

// New builds a View over spec, executing the query planner describes.
// Options configure the engine's Config before construction (e.g.
// WithCleanInterval, WithExperimentalWindowView). The view is not running
// until Startup is called.
func New(spec *windowspec.Spec, planner query.Planner, opts ...Option) (*View, error) {
	cfg := types.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	engine, err := view.New(spec, planner, cfg)
	if err != nil {
		return nil, err
	}
	return &View{engine: engine}, nil
}

// Filter installs an optional row-level predicate (spec.md's WHERE-style
// pre-filter, compiled with github.com/expr-lang/expr) evaluated before
// any row reaches the watermark clock or the inner table.
func (v *View) Filter(expression string) error {
	cond, err := condition.NewExprCondition(expression)
	if err != nil {
		return err
	}
	v.engine.SetFilter(cond)
	return nil
}

// Startup starts the view's background goroutines (fire scheduling,
// cleanup, heartbeats). ctx governs their lifetime until Shutdown.
func (v *View) Startup(ctx context.Context) error {
	return v.engine.Startup(ctx)
}

// Write inserts rows through the view's seven-step insert pipeline.
func (v *View) Write(ctx context.Context, rows []types.Row) error {
	return v.engine.Write(ctx, rows)
}

// Watch registers a new bounded subscriber to fired window output; limit
// bounds how many not-yet-consumed row batches are buffered before the
// oldest is dropped.
func (v *View) Watch(limit int) *view.Watcher {
	return v.engine.Watch(limit)
}

// Inner returns the view's inner (raw, not-yet-fired) table.
func (v *View) Inner() storage.Table {
	return v.engine.Inner()
}

// Target returns the view's target (fired output) table.
func (v *View) Target() storage.Table {
	return v.engine.Target()
}

// Shutdown stops every background goroutine and closes all watchers.
func (v *View) Shutdown(ctx context.Context) error {
	return v.engine.Shutdown(ctx)
}

// Drop shuts the view down and discards both the inner and target tables.
func (v *View) Drop(ctx context.Context) error {
	return v.engine.Drop(ctx)
}
