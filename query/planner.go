// Package query holds the window view engine's external query-execution
// seam (spec.md §1: a Planner is supplied by the surrounding SQL engine
// and treated as an opaque collaborator) plus a working default
// implementation, ExprPlanner, built on github.com/expr-lang/expr the same
// way the teacher's condition.ExprCondition compiles predicates.
//
// Parsing SQL text into a plan is explicitly out of scope (spec.md
// Non-goals): ExprPlanner is configured programmatically from a group-by
// column list, a select-expression map, and an aggregate-function list,
// never from a SQL string.
package query

import "github.com/windowview/windowview/types"

// MergeablePlan incrementally folds newly-inserted rows into whatever
// partial state the inner table keeps per in-flight window (spec.md §4.4
// step 5: "run the mergeable plan and squash").
type MergeablePlan interface {
	Apply(rows []types.Row) ([]types.Row, error)
}

// InnerFetchPlan builds the window selector predicate of spec.md §4.5 step
// 2 and applies it: Tumble selects rows whose window_id equals w; Hop
// selects rows whose window_id falls among w's contributing slice
// boundaries.
type InnerFetchPlan interface {
	Apply(rows []types.Row, w uint32) ([]types.Row, error)
}

// FinalPlan projects and aggregates a window's fetched rows into the
// output rows pushed to watchers and the target table (spec.md §4.5 steps
// 3-5).
type FinalPlan interface {
	Apply(rows []types.Row, windowStart, windowID uint32) ([]types.Row, error)
}

// Planner is the external collaborator a view is built against: it knows
// how to turn the surrounding query's SELECT/GROUP BY/aggregate clauses
// into the three plan stages above. A window view never constructs a
// Planner itself; one is supplied at construction time (spec.md §1).
type Planner interface {
	Mergeable() MergeablePlan
	Final() FinalPlan
	InnerFetch() InnerFetchPlan
}
