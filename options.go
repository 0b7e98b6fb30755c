package windowview

import (
	"time"

	"github.com/windowview/windowview/types"
)

// Option customizes a View's types.Config before construction.
type Option func(*types.Config)

// WithCleanInterval sets how often the cleanup task scans the inner table.
func WithCleanInterval(d time.Duration) Option {
	return func(c *types.Config) { c.CleanInterval = d }
}

// WithHeartbeatInterval sets the proctime-view and watcher heartbeat
// ticker period.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *types.Config) { c.HeartbeatInterval = d }
}

// WithMinInsert sets the row/byte batching thresholds in the Config. The
// insert path does not read them; each Write is processed at once.
func WithMinInsert(rows, bytes int) Option {
	return func(c *types.Config) {
		c.MinInsertRows = rows
		c.MinInsertBytes = bytes
	}
}

// WithExperimentalWindowView toggles the gate New checks before
// constructing a view, mirroring the teacher's single-flag subsystem gate.
func WithExperimentalWindowView(allow bool) Option {
	return func(c *types.Config) { c.AllowExperimentalWindowView = allow }
}

// WithLockAcquireTimeout bounds how long Write waits to acquire the
// insert pipeline's lock before giving up with an error.
func WithLockAcquireTimeout(d time.Duration) Option {
	return func(c *types.Config) { c.LockAcquireTimeout = d }
}
