// Package windowspec implements WindowSpec and its derived bounds (C2):
// the immutable description of a window view's kind, size, hop, slice,
// watermark policy, and lateness, plus window_lower_bound/window_upper_bound.
//
// Grounded on the teacher's types.WindowConfig (types/config.go: a plain,
// JSON-tagged, copy-by-value configuration struct built once and handed to
// the processing engine) and on the window-function vocabulary
// (tumble/hop) the teacher's rsql/operator layer names, generalized here
// from wall-clock ticker windows to the spec's watermark-driven model.
package windowspec

import (
	"fmt"
	"time"

	"github.com/windowview/windowview/calendar"
	"github.com/windowview/windowview/errs"
)

// Kind is the window shape: Tumble (non-overlapping) or Hop (overlapping,
// reduced to slices).
type Kind int

const (
	Tumble Kind = iota
	Hop
)

// TimeMode selects whether window boundaries are decided by wall clock
// (Proctime) or by row timestamps (EventTime).
type TimeMode int

const (
	Proctime TimeMode = iota
	EventTime
)

// WatermarkPolicyKind is the event-time watermark-advance policy.
type WatermarkPolicyKind int

const (
	StrictlyAscending WatermarkPolicyKind = iota
	Ascending
	Bounded
)

// WatermarkPolicy configures how far behind max_timestamp the watermark is
// allowed to lag. Only meaningful when TimeMode == EventTime.
type WatermarkPolicy struct {
	Kind      WatermarkPolicyKind
	BoundKind calendar.Kind // used only when Kind == Bounded
	BoundN    int64         // used only when Kind == Bounded
}

// Lateness configures how far below max_timestamp rows may still land in an
// already-fired window (spec.md §3/§7).
type Lateness struct {
	Kind calendar.Kind
	N    int64
}

// Spec is the immutable WindowSpec of spec.md §3. It is built once per view
// and never mutated afterward.
type Spec struct {
	Kind Kind

	WindowKind calendar.Kind
	WindowN    int64

	HopKind calendar.Kind // == WindowKind for Hop, unused for Tumble
	HopN    int64         // unused for Tumble
	SliceN  int64         // gcd(HopN, WindowN), unused for Tumble

	SlideKind calendar.Kind // == WindowKind for Tumble, == HopKind for Hop
	SlideN    int64         // == WindowN for Tumble, == HopN for Hop

	TimeMode  TimeMode
	Watermark WatermarkPolicy
	Lateness  *Lateness

	Location            *time.Location
	TimestampColumnName string
	WindowIDName        string
}

// NewTumble builds a Tumble Spec. windowKind/windowN give the window size.
func NewTumble(windowKind calendar.Kind, windowN int64, timeMode TimeMode, opts ...Option) (*Spec, error) {
	if err := validateKindN(windowKind, windowN); err != nil {
		return nil, err
	}
	s := &Spec{
		Kind:                Tumble,
		WindowKind:          windowKind,
		WindowN:             windowN,
		SlideKind:           windowKind,
		SlideN:              windowN,
		TimeMode:            timeMode,
		Location:            time.UTC,
		TimestampColumnName: "timestamp",
		WindowIDName:        "window_id",
	}
	return finish(s, opts)
}

// NewHop builds a Hop Spec. hop and window share the same calendar Kind
// (spec.md §3: "For Hop: hop_kind=window_kind"); windowN is the window
// size in that kind's units, hopN is the hop (slide) size.
func NewHop(kind calendar.Kind, windowN, hopN int64, timeMode TimeMode, opts ...Option) (*Spec, error) {
	if err := validateKindN(kind, windowN); err != nil {
		return nil, err
	}
	if err := validateKindN(kind, hopN); err != nil {
		return nil, err
	}
	sliceN := calendar.GCDSeconds(windowN, hopN)
	if sliceN < 1 {
		return nil, fmt.Errorf("windowview: invalid slice unit computed from window=%d hop=%d", windowN, hopN)
	}
	s := &Spec{
		Kind:                Hop,
		WindowKind:          kind,
		WindowN:             windowN,
		HopKind:             kind,
		HopN:                hopN,
		SliceN:              sliceN,
		SlideKind:           kind,
		SlideN:              hopN,
		TimeMode:            timeMode,
		Location:            time.UTC,
		TimestampColumnName: "timestamp",
		WindowIDName:        "window_id",
	}
	return finish(s, opts)
}

// Option customizes a Spec at construction time.
type Option func(*Spec) error

// WithWatermark configures the watermark policy. It never returns an error
// and is accepted for any TimeMode; finish() validates the bound only for
// an EventTime view with a Bounded policy.
func WithWatermark(policy WatermarkPolicy) Option {
	return func(s *Spec) error {
		s.Watermark = policy
		return nil
	}
}

// WithLateness configures lateness tolerance.
func WithLateness(kind calendar.Kind, n int64) Option {
	return func(s *Spec) error {
		if n <= 0 {
			return errs.ErrNonPositiveUnits
		}
		s.Lateness = &Lateness{Kind: kind, N: n}
		return nil
	}
}

// WithLocation sets the timezone used for calendar-variable kinds
// (Month/Quarter/Year).
func WithLocation(loc *time.Location) Option {
	return func(s *Spec) error {
		s.Location = loc
		return nil
	}
}

// WithColumnNames overrides the default timestamp/window-id column names
// (the planner normally supplies these, per spec.md §6).
func WithColumnNames(timestampColumn, windowIDName string) Option {
	return func(s *Spec) error {
		s.TimestampColumnName = timestampColumn
		s.WindowIDName = windowIDName
		return nil
	}
}

func finish(s *Spec, opts []Option) (*Spec, error) {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.TimeMode == Proctime && s.Lateness != nil {
		// Design note (spec.md §9, Open Question): the source never emits
		// lateness fire-signals in proctime mode. We preserve the
		// asymmetry by simply ignoring a configured lateness bound in
		// proctime rather than rejecting it, matching "do not extrapolate
		// lateness to proctime" without forcing a construction error.
		s.Lateness = nil
	}
	if s.TimeMode == EventTime && s.Watermark.Kind == Bounded {
		if err := validateKindN(s.Watermark.BoundKind, s.Watermark.BoundN); err != nil {
			return nil, err
		}
	}
	if s.Lateness != nil {
		if err := validateKindN(s.Lateness.Kind, s.Lateness.N); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func validateKindN(kind calendar.Kind, n int64) error {
	if kind.IsFractional() {
		return errs.ErrFractionalInterval
	}
	if n <= 0 {
		return errs.ErrNonPositiveUnits
	}
	return nil
}

// LowerBound implements window_lower_bound(t) (spec.md §4.2).
func (s *Spec) LowerBound(t uint32) (uint32, error) {
	switch s.Kind {
	case Tumble:
		return calendar.StartOf(t, s.WindowKind, s.WindowN, s.Location)
	case Hop:
		start, err := calendar.StartOf(t, s.HopKind, s.HopN, s.Location)
		if err != nil {
			return 0, err
		}
		end, err := calendar.Add(start, s.HopKind, s.HopN, s.Location)
		if err != nil {
			return 0, err
		}
		return calendar.Add(end, s.HopKind, -s.WindowN, s.Location)
	default:
		return 0, fmt.Errorf("windowview: unknown window kind %d", s.Kind)
	}
}

// UpperBound implements window_upper_bound(t) (spec.md §4.2). This value is
// always the window_id.
func (s *Spec) UpperBound(t uint32) (uint32, error) {
	start, err := calendar.StartOf(t, s.SlideKind, s.SlideN, s.Location)
	if err != nil {
		return 0, err
	}
	return calendar.Add(start, s.SlideKind, s.SlideN, s.Location)
}

// WindowID is an alias for UpperBound, named the way the planner's
// window_id column is named (spec.md §3/§6).
func (s *Spec) WindowID(t uint32) (uint32, error) {
	return s.UpperBound(t)
}

// SliceBoundaries enumerates, for a Hop view, every slice window_id that
// contributes to the window ending at w: all boundaries in the open
// interval (w-window, w] stepping by -slice_n (spec.md §4.5 step 2). For a
// Tumble view it returns the single boundary w, since a tumbling window has
// no sub-slices.
func (s *Spec) SliceBoundaries(w uint32) ([]uint32, error) {
	if s.Kind == Tumble {
		return []uint32{w}, nil
	}
	count := s.WindowN / s.SliceN
	boundaries := make([]uint32, 0, count)
	cur := w
	for i := int64(0); i < count; i++ {
		boundaries = append(boundaries, cur)
		next, err := calendar.Add(cur, s.HopKind, -s.SliceN, s.Location)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return boundaries, nil
}

// WindowStart returns the lower bound of the window that ends at w, i.e.
// add(w, window_kind, -window_n) (spec.md §4.5 step 3).
func (s *Spec) WindowStart(w uint32) (uint32, error) {
	return calendar.Add(w, s.WindowKind, -s.WindowN, s.Location)
}
