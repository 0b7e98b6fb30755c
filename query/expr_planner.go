package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"

	"github.com/windowview/windowview/types"
	"github.com/windowview/windowview/utils/fieldpath"
	"github.com/windowview/windowview/windowspec"
)

// AggSpec describes one aggregate output column: Output is the result
// field name, Func names an entry from the aggregate-function vocabulary
// (aggregate.go), Column is an expr-lang expression evaluated per row to
// produce the numeric sample, and Args carries any literal arguments
// following it (e.g. the percent of a percentile).
type AggSpec struct {
	Output string
	Func   string
	Column string
	Args   []any
}

type compiledAgg struct {
	spec    AggSpec
	program *vm.Program
	fn      AggregateFunc
}

// ExprPlanner is the default Planner: group-by columns plus a map of plain
// projection expressions plus a list of aggregates, all compiled with
// expr-lang/expr exactly the way the teacher's condition.ExprCondition
// compiles its boolean predicates.
type ExprPlanner struct {
	spec            *windowspec.Spec
	timestampColumn string
	groupBy         []string
	selectExprs     map[string]*vm.Program
	aggs            []compiledAgg
}

// NewExprPlanner compiles a planner against spec (needed so the
// inner-fetch plan can build the Tumble/Hop window selector predicate over
// the window_id column). selectExprs maps an output column name to an
// expr-lang expression evaluated once per output group (against the
// group's first row); it is meant for plain passthrough columns, not
// aggregates.
func NewExprPlanner(spec *windowspec.Spec, groupBy []string, selectExprs map[string]string, aggs []AggSpec) (*ExprPlanner, error) {
	p := &ExprPlanner{
		spec:            spec,
		timestampColumn: spec.TimestampColumnName,
		groupBy:         append([]string(nil), groupBy...),
		selectExprs:     make(map[string]*vm.Program, len(selectExprs)),
	}

	for name, src := range selectExprs {
		program, err := expr.Compile(src, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("windowview: compiling select expression %q: %w", name, err)
		}
		p.selectExprs[name] = program
	}

	for _, a := range aggs {
		fn, ok := LookupAggregateFunc(a.Func)
		if !ok {
			return nil, fmt.Errorf("windowview: unknown aggregate function %q", a.Func)
		}
		program, err := expr.Compile(a.Column, expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("windowview: compiling aggregate column %q: %w", a.Column, err)
		}
		p.aggs = append(p.aggs, compiledAgg{spec: a, program: program, fn: fn})
	}

	return p, nil
}

// Mergeable returns the identity mergeable plan: a window view defers all
// aggregation to fire time (spec.md §4.4 step 5 only squashes duplicate
// inserts, which the storage layer already handles via its own locking),
// so folding newly-inserted rows into the inner table is a pure passthrough
// here.
func (p *ExprPlanner) Mergeable() MergeablePlan {
	return identityMergeablePlan{}
}

type identityMergeablePlan struct{}

func (identityMergeablePlan) Apply(rows []types.Row) ([]types.Row, error) {
	return rows, nil
}

// InnerFetch returns a plan selecting rows by the Tumble/Hop window
// selector predicate of spec.md §4.5 step 2: window_id == w for Tumble,
// window_id ∈ slice-boundaries(w) for Hop.
func (p *ExprPlanner) InnerFetch() InnerFetchPlan {
	return innerFetchPlan{spec: p.spec}
}

type innerFetchPlan struct {
	spec *windowspec.Spec
}

func (p innerFetchPlan) Apply(rows []types.Row, w uint32) ([]types.Row, error) {
	boundaries, err := p.spec.SliceBoundaries(w)
	if err != nil {
		return nil, err
	}
	match := make(map[uint32]struct{}, len(boundaries))
	for _, b := range boundaries {
		match[b] = struct{}{}
	}

	out := make([]types.Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := match[r.WindowID]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// Final groups the fetched rows by the configured group-by columns,
// evaluates every plain select expression against each group's first row,
// computes every aggregate over the group's sample column, and stamps the
// window's start/id columns onto the result (spec.md §4.5 steps 3-4).
func (p *ExprPlanner) Final() FinalPlan {
	return p
}

func (p *ExprPlanner) Apply(rows []types.Row, windowStart, windowID uint32) ([]types.Row, error) {
	groups := make(map[string][]types.Row)
	var order []string
	for _, r := range rows {
		key := p.groupKey(r)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	sort.Strings(order)

	out := make([]types.Row, 0, len(order))
	for _, key := range order {
		group := groups[key]
		result := types.NewRow(nil)

		first := group[0]
		for name, program := range p.selectExprs {
			v, err := expr.Run(program, first.Fields)
			if err != nil {
				return nil, fmt.Errorf("windowview: evaluating select expression %q: %w", name, err)
			}
			result.Set(name, v)
		}

		for _, a := range p.aggs {
			samples := make([]float64, 0, len(group))
			for _, r := range group {
				v, err := expr.Run(a.program, r.Fields)
				if err != nil {
					return nil, fmt.Errorf("windowview: evaluating aggregate column for %q: %w", a.spec.Output, err)
				}
				samples = append(samples, cast.ToFloat64(v))
			}
			value, err := a.fn(samples, a.spec.Args...)
			if err != nil {
				return nil, fmt.Errorf("windowview: computing aggregate %q: %w", a.spec.Output, err)
			}
			result.Set(a.spec.Output, value)
		}

		result.WindowID = windowID
		result.Timestamp = windowStart
		out = append(out, result)
	}
	return out, nil
}

// groupKey joins the grouping columns' values into a single string. Each
// column name is a field path in the sense of the teacher's
// utils/fieldpath package: a plain name for a top-level field, or a
// dotted/indexed path ("device.info.name", "tags[0]") for a nested one.
func (p *ExprPlanner) groupKey(r types.Row) string {
	if len(p.groupBy) == 0 {
		return ""
	}
	parts := make([]string, len(p.groupBy))
	for i, field := range p.groupBy {
		v, ok := fieldpath.GetNestedField(r.Fields, field)
		if !ok {
			v, _ = r.Get(field)
		}
		parts[i] = cast.ToString(v)
	}
	return strings.Join(parts, "\x1f")
}
