package view

import (
	"sync"

	"github.com/windowview/windowview/logger"
	"github.com/windowview/windowview/types"
)

// Watcher is a bounded subscriber to a view's fired windows (spec.md §4.6:
// Watch(limit)). When the subscriber can't keep up, the oldest buffered
// batch is dropped to make room for the newest one rather than blocking
// the fire pipeline — the same drop-oldest backpressure the teacher's
// stream package applies to its output channel.
type Watcher struct {
	rows      chan []types.Row
	heartbeat chan struct{}

	closeOnce sync.Once
	closed    chan struct{}

	unregister func(*Watcher)
}

func newWatcher(limit int, unregister func(*Watcher)) *Watcher {
	if limit < 1 {
		limit = 1
	}
	return &Watcher{
		rows:       make(chan []types.Row, limit),
		heartbeat:  make(chan struct{}, 1),
		closed:     make(chan struct{}),
		unregister: unregister,
	}
}

// Rows returns the channel of fired-window output batches.
func (w *Watcher) Rows() <-chan []types.Row {
	return w.rows
}

// Heartbeat returns a channel that receives a value roughly once per
// HeartbeatInterval, whether or not any window has fired, so a consumer can
// distinguish "no output yet" from "the view is gone". It buffers at most
// one pending beat.
func (w *Watcher) Heartbeat() <-chan struct{} {
	return w.heartbeat
}

// Close unregisters the watcher; further pushes to it are no-ops.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.closed)
		if w.unregister != nil {
			w.unregister(w)
		}
	})
}

func (w *Watcher) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}

// push delivers rows to the watcher, dropping the oldest buffered batch if
// full.
func (w *Watcher) push(rows []types.Row) {
	if w.isClosed() {
		return
	}
	select {
	case w.rows <- rows:
		return
	default:
	}
	select {
	case <-w.rows:
		logger.Warn("windowview: watcher buffer full, dropped oldest batch")
	default:
	}
	select {
	case w.rows <- rows:
	default:
	}
}

func (w *Watcher) beat() {
	if w.isClosed() {
		return
	}
	select {
	case w.heartbeat <- struct{}{}:
	default:
	}
}
