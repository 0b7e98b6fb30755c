// Package calendar implements the interval arithmetic component (C1) of the
// window view engine: calendar-aware add/start-of over whole seconds.
//
// Grounded on the teacher's utils/time.go (timex.AlignTimeToWindow, a
// modulo-based alignment trick) and its watermark.go alignWindowStart,
// generalized from "duration-sized buckets" to the full calendar vocabulary
// (week/month/quarter/year) a window view needs.
package calendar

import (
	"fmt"

	"github.com/windowview/windowview/errs"
)

// Kind enumerates the interval units a WindowSpec can be built from.
// Nanosecond/Microsecond/Millisecond are recognized only so that
// constructors can reject them by name (FractionalUnsupported, spec.md
// §4.1).
type Kind int

const (
	Nanosecond Kind = iota
	Microsecond
	Millisecond
	Second
	Minute
	Hour
	Day
	Week
	Month
	Quarter
	Year
)

func (k Kind) String() string {
	switch k {
	case Nanosecond:
		return "nanosecond"
	case Microsecond:
		return "microsecond"
	case Millisecond:
		return "millisecond"
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case Year:
		return "year"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsFractional reports whether k is a sub-second unit, which the core
// cannot express in its whole-second timestamp model.
func (k Kind) IsFractional() bool {
	return k == Nanosecond || k == Microsecond || k == Millisecond
}

// ToSeconds returns the length, in seconds, of n units of k, for the fixed
// (non-calendar-variable) kinds Second..Week. Month/Quarter/Year have no
// fixed length and must go through Add/StartOf instead; callers that need a
// plain number of seconds for those kinds (e.g. slice_n in windowspec) must
// not call ToSeconds on them.
func (k Kind) ToSeconds(n int64) (int64, error) {
	if k.IsFractional() {
		return 0, errs.ErrFractionalInterval
	}
	switch k {
	case Second:
		return n, nil
	case Minute:
		return n * 60, nil
	case Hour:
		return n * 3600, nil
	case Day:
		return n * 86400, nil
	case Week:
		return n * 7 * 86400, nil
	default:
		return 0, fmt.Errorf("windowview: %s has no fixed length in seconds", k)
	}
}
