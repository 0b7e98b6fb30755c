// Package watermark implements the watermark state machine (C3): tracking
// max_timestamp/max_watermark/max_fired_watermark for a view, deciding
// which window ids have become fireable, and computing the cleanup bound
// below which fired rows may be dropped.
//
// Grounded on the teacher's window/watermark.go (a mutex+sync.Cond guarded
// WatermarkState with an alignWindowStart helper) and utils/queue/queue.go
// (the ring-buffer fire queue, see fifo.go), generalized from the teacher's
// fixed-duration tumbling buckets to the Bootstrap/StrictlyAscending/
// Ascending/Bounded watermark policy state machine.
package watermark

import (
	"context"
	"sync"

	"github.com/windowview/windowview/calendar"
	"github.com/windowview/windowview/windowspec"
)

// Clock owns one view's watermark state and fire queue. update_max_watermark
// is invoked with the largest raw row timestamp observed in a batch; it is
// not itself a window id, though once bootstrapped max_watermark always
// holds one (an upper bound produced by windowspec.Spec.UpperBound).
type Clock struct {
	mu   sync.Mutex
	cond *sync.Cond

	spec *windowspec.Spec

	maxTimestamp      uint32
	maxWatermark      uint32
	maxFiredWatermark uint32

	queue *fifo
}

// NewClock builds a Clock for the given spec, for either time mode. An
// EventTime view advances it from row timestamps; a Proctime view also
// drives it with wall-clock ticks (view.Engine.fireProcLoop).
func NewClock(spec *windowspec.Spec) *Clock {
	c := &Clock{spec: spec, queue: newFIFO()}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// UpdateMaxTimestamp maxes max_timestamp with t.
func (c *Clock) UpdateMaxTimestamp(t uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.maxTimestamp {
		c.maxTimestamp = t
	}
}

// UpdateMaxWatermark folds a new raw timestamp observation into the
// watermark state machine (spec.md §4.3). w=0 is ignored. The first
// non-zero call bootstraps max_watermark to the upper bound of the window
// containing w and enqueues nothing; subsequent calls drain every window
// boundary the configured policy now considers complete.
func (c *Clock) UpdateMaxWatermark(w uint32) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w == 0 {
		return nil, nil
	}

	if c.maxWatermark == 0 {
		mw, err := c.spec.UpperBound(w - 1)
		if err != nil {
			return nil, err
		}
		c.maxWatermark = mw
		return nil, nil
	}

	var (
		ready []uint32
		err   error
	)
	switch c.spec.Watermark.Kind {
	case windowspec.Ascending:
		ready, err = c.drainBiasedLocked(w, calendar.Second, 1)
	case windowspec.Bounded:
		ready, err = c.drainBiasedLocked(w, c.spec.Watermark.BoundKind, c.spec.Watermark.BoundN)
	default: // StrictlyAscending
		ready, err = c.drainStrictlyAscendingLocked(w)
	}
	if err != nil {
		return ready, err
	}
	if len(ready) > 0 {
		c.cond.Broadcast()
	}
	return ready, nil
}

// drainStrictlyAscendingLocked enqueues every window boundary strictly
// below w, advancing max_watermark past each.
func (c *Clock) drainStrictlyAscendingLocked(w uint32) ([]uint32, error) {
	var ready []uint32
	for c.maxWatermark < w {
		c.queue.Push(c.maxWatermark)
		ready = append(ready, c.maxWatermark)
		c.maxFiredWatermark = c.maxWatermark

		next, err := calendar.Add(c.maxWatermark, c.spec.SlideKind, c.spec.SlideN, c.spec.Location)
		if err != nil {
			return ready, err
		}
		c.maxWatermark = next
	}
	return ready, nil
}

// drainBiasedLocked implements the Ascending/Bounded branch: a window only
// drains once max_watermark plus the policy's tolerance (boundKind/boundN)
// has fallen behind both w and max_timestamp.
func (c *Clock) drainBiasedLocked(w uint32, boundKind calendar.Kind, boundN int64) ([]uint32, error) {
	bias, err := calendar.Add(c.maxWatermark, boundKind, boundN, c.spec.Location)
	if err != nil {
		return nil, err
	}
	if bias > w {
		return nil, nil
	}

	var ready []uint32
	for bias <= c.maxTimestamp {
		c.queue.Push(c.maxWatermark)
		ready = append(ready, c.maxWatermark)
		c.maxFiredWatermark = c.maxWatermark

		nextMW, err := calendar.Add(c.maxWatermark, c.spec.SlideKind, c.spec.SlideN, c.spec.Location)
		if err != nil {
			return ready, err
		}
		nextBias, err := calendar.Add(bias, c.spec.SlideKind, c.spec.SlideN, c.spec.Location)
		if err != nil {
			return ready, err
		}
		c.maxWatermark = nextMW
		bias = nextBias
	}
	return ready, nil
}

// Reenqueue pushes w back onto the fire queue unconditionally, even if it
// has already fired once. Used by the ingest path's lateness branch
// (spec.md §4.4 step 6); the core intentionally does not deduplicate
// (spec.md §9, Open Question).
func (c *Clock) Reenqueue(w uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Push(w)
	c.cond.Broadcast()
}

// PopReady dequeues the next fireable window id, if any.
func (c *Clock) PopReady() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Pop()
}

// Wait blocks until a window id is ready to fire or ctx is done. It returns
// false if ctx ended the wait without any window becoming ready.
func (c *Clock) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		close(done)
		c.cond.Broadcast()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.queue.Len() == 0 {
		select {
		case <-done:
			return false
		default:
		}
		c.cond.Wait()
	}
	return true
}

// CleanupBound computes the window id below which inner-table rows can no
// longer contribute to any not-yet-fired window (spec.md §4.3).
func (c *Clock) CleanupBound() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxWatermark == 0 {
		return 0, nil
	}
	if c.spec.Lateness == nil {
		return c.maxFiredWatermark, nil
	}

	t, err := calendar.Add(c.maxTimestamp, c.spec.Lateness.Kind, -c.spec.Lateness.N, c.spec.Location)
	if err != nil {
		return 0, err
	}
	lb, err := c.spec.LowerBound(t)
	if err != nil {
		return 0, err
	}
	if lb < c.maxFiredWatermark {
		return lb, nil
	}
	return c.maxFiredWatermark, nil
}

// MaxTimestamp returns the largest row timestamp observed so far.
func (c *Clock) MaxTimestamp() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxTimestamp
}

// MaxWatermark returns the current watermark (0 if not yet bootstrapped).
func (c *Clock) MaxWatermark() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxWatermark
}

// MaxFiredWatermark returns the window id of the most recently fired
// window.
func (c *Clock) MaxFiredWatermark() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxFiredWatermark
}
