package calendar

import (
	"time"

	"github.com/windowview/windowview/errs"
)

// monthsPerUnit returns how many calendar months one unit of kind spans,
// for the two calendar-variable kinds expressible as a month multiple.
func monthsPerUnit(kind Kind) int {
	if kind == Quarter {
		return 3
	}
	return 1
}

// Add returns t shifted by n units of kind, in the given time zone.
// Month/Quarter/Year go through time.Time.AddDate so that leap years and
// variable month lengths are handled the way the standard library (the
// stand-in for the spec's external "calendar" collaborator, §1) already
// does it correctly. Fails with errs.ErrFractionalInterval for
// Nanosecond/Microsecond/Millisecond.
func Add(t uint32, kind Kind, n int64, loc *time.Location) (uint32, error) {
	if kind.IsFractional() {
		return 0, errs.ErrFractionalInterval
	}
	tm := time.Unix(int64(t), 0).In(loc)
	var out time.Time
	switch kind {
	case Second:
		out = tm.Add(time.Duration(n) * time.Second)
	case Minute:
		out = tm.Add(time.Duration(n) * time.Minute)
	case Hour:
		out = tm.Add(time.Duration(n) * time.Hour)
	case Day:
		out = tm.AddDate(0, 0, int(n))
	case Week:
		out = tm.AddDate(0, 0, int(n)*7)
	case Month:
		out = tm.AddDate(0, int(n), 0)
	case Quarter:
		out = tm.AddDate(0, int(n)*3, 0)
	case Year:
		out = tm.AddDate(int(n), 0, 0)
	default:
		return 0, errs.ErrNotAnInterval
	}
	return clampUnix(out), nil
}

// StartOf floors t to the nearest multiple-of-n boundary of kind, in the
// given time zone. For the fixed-length kinds (Second..Week) this is plain
// integer division on the Unix second count, mirroring the teacher's
// timex.AlignTimeToWindow modulo trick. For Month/Quarter/Year it floors
// the calendar month/year index so that e.g. start_of(t, Month, 3) aligns
// on calendar-quarter boundaries from year zero, not from an arbitrary
// epoch offset.
func StartOf(t uint32, kind Kind, n int64, loc *time.Location) (uint32, error) {
	if kind.IsFractional() {
		return 0, errs.ErrFractionalInterval
	}
	if n <= 0 {
		return 0, errs.ErrNonPositiveUnits
	}
	switch kind {
	case Second, Minute, Hour, Day, Week:
		step, err := kind.ToSeconds(n)
		if err != nil {
			return 0, err
		}
		floored := (int64(t) / step) * step
		return uint32(floored), nil
	case Month, Quarter:
		tm := time.Unix(int64(t), 0).In(loc)
		y, m, _ := tm.Date()
		monthIdx := int64(y)*12 + int64(m-1)
		step := n * int64(monthsPerUnit(kind))
		floored := (monthIdx / step) * step
		fy := floored / 12
		fm := floored % 12
		start := time.Date(int(fy), time.Month(fm+1), 1, 0, 0, 0, 0, loc)
		return clampUnix(start), nil
	case Year:
		tm := time.Unix(int64(t), 0).In(loc)
		y := int64(tm.Year())
		floored := (y / n) * n
		start := time.Date(int(floored), time.January, 1, 0, 0, 0, 0, loc)
		return clampUnix(start), nil
	default:
		return 0, errs.ErrNotAnInterval
	}
}

func clampUnix(t time.Time) uint32 {
	u := t.Unix()
	if u < 0 {
		return 0
	}
	return uint32(u)
}

// GCDSeconds returns the greatest common divisor of a and b (both assumed
// positive), the slice-unit trick of spec.md §2/§4.3. A plain Euclidean
// algorithm; no pack dependency offers arbitrary-precision or interval GCD,
// so this one helper is stdlib-only by necessity (see DESIGN.md).
func GCDSeconds(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
