package query

import (
	"fmt"

	"github.com/montanaflynn/stats"
)

// AggregateFunc computes one aggregate value over a column of numeric
// samples collected for a single output group. args carries any literal
// arguments following the column expression (e.g. the percent argument of
// percentile(col, 95)).
type AggregateFunc func(samples []float64, args ...any) (float64, error)

// aggregateFuncs is the engine's aggregate-function vocabulary, grounded on
// the teacher's builtin package (builtin.go/function.go: an
// AggregateBuiltins map populated from montanaflynn/stats), adapted to
// return (float64, error) instead of (any, error) since every aggregate a
// window view computes is numeric.
var aggregateFuncs = map[string]AggregateFunc{
	"sum": func(samples []float64, _ ...any) (float64, error) {
		return stats.Sum(samples)
	},
	"count": func(samples []float64, _ ...any) (float64, error) {
		return float64(len(samples)), nil
	},
	"avg": func(samples []float64, _ ...any) (float64, error) {
		return stats.Mean(samples)
	},
	"min": func(samples []float64, _ ...any) (float64, error) {
		return stats.Min(samples)
	},
	"max": func(samples []float64, _ ...any) (float64, error) {
		return stats.Max(samples)
	},
	"median": func(samples []float64, _ ...any) (float64, error) {
		return stats.Median(samples)
	},
	"stddev": func(samples []float64, _ ...any) (float64, error) {
		return stats.StandardDeviation(samples)
	},
	"stddevs": func(samples []float64, _ ...any) (float64, error) {
		return stats.StandardDeviationSample(samples)
	},
	"var": func(samples []float64, _ ...any) (float64, error) {
		return stats.Variance(samples)
	},
	"vars": func(samples []float64, _ ...any) (float64, error) {
		return stats.VarS(samples)
	},
	"percentile": func(samples []float64, args ...any) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("windowview: percentile requires one percent argument")
		}
		percent, ok := args[0].(float64)
		if !ok {
			return 0, fmt.Errorf("windowview: percentile argument must be a float64")
		}
		return stats.Percentile(samples, percent)
	},
}

// LookupAggregateFunc returns the named aggregate function.
func LookupAggregateFunc(name string) (AggregateFunc, bool) {
	f, ok := aggregateFuncs[name]
	return f, ok
}
