package view

import (
	"context"

	"github.com/windowview/windowview/logger"
)

// taskPool is the re-arming fire scheduler: a small fixed pool of worker
// goroutines pulling window ids off a channel and running them through a
// fire function, so that a burst of watermark-ready windows doesn't
// serialize behind the goroutine that discovered them. Grounded on the
// teacher's stream package worker-pool pattern (a bounded job channel plus
// N consumer goroutines draining it under a shared context).
type taskPool struct {
	fire func(ctx context.Context, w uint32) error
	jobs chan uint32
	done chan struct{}
}

func newTaskPool(ctx context.Context, size int, fire func(context.Context, uint32) error) *taskPool {
	if size < 1 {
		size = 1
	}
	tp := &taskPool{
		fire: fire,
		jobs: make(chan uint32, 64),
		done: make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go tp.worker(ctx)
	}
	return tp
}

func (tp *taskPool) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tp.done:
			return
		case w := <-tp.jobs:
			if err := tp.fire(ctx, w); err != nil {
				logger.Warn("windowview: firing window %d: %v", w, err)
			}
		}
	}
}

// Submit enqueues a window id for firing, blocking only as long as the job
// channel is full.
func (tp *taskPool) Submit(ctx context.Context, w uint32) {
	select {
	case tp.jobs <- w:
	case <-ctx.Done():
	case <-tp.done:
	}
}

func (tp *taskPool) Stop() {
	close(tp.done)
}
