// Package resource bounds the work a database runs in the background:
// how many tables are processed at once, how many snapshot bytes are held in
// memory, and how fast archive bytes move.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// BufferLimitBytes caps the table snapshot bytes held in memory at once.
	// If 0, buffers are only tracked.
	BufferLimitBytes int64

	// MaxWorkers is the maximum number of tables processed concurrently.
	// If 0, defaults to 1.
	MaxWorkers int64

	// IOLimitBytesPerSec is the maximum archive throughput. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller hands out worker slots, buffer budget and I/O budget.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	bufSem  *semaphore.Weighted // nil if unlimited
	bufUsed atomic.Int64

	workers *semaphore.Weighted

	io *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}

	if cfg.BufferLimitBytes > 0 {
		c.bufSem = semaphore.NewWeighted(cfg.BufferLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireBuffer reserves n bytes of buffer budget, blocking until they are
// available or ctx is done. A request larger than the whole budget is
// clamped to it so it can still proceed alone.
func (c *Controller) AcquireBuffer(ctx context.Context, n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.bufSem != nil {
		if err := c.bufSem.Acquire(ctx, c.clamp(n)); err != nil {
			return err
		}
	}
	c.bufUsed.Add(n)
	return nil
}

// ReleaseBuffer returns n bytes acquired earlier.
func (c *Controller) ReleaseBuffer(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.bufSem != nil {
		c.bufSem.Release(c.clamp(n))
	}
	c.bufUsed.Add(-n)
}

func (c *Controller) clamp(n int64) int64 {
	return min(n, c.cfg.BufferLimitBytes)
}

// BufferUsage returns the bytes currently reserved.
func (c *Controller) BufferUsage() int64 {
	if c == nil {
		return 0
	}
	return c.bufUsed.Load()
}

// AcquireWorker reserves a worker slot, blocking while all are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the I/O limit allows n bytes. Requests larger than
// one second of budget are split into burst-sized waits.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
