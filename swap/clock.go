package swap

import (
	"context"
	"sync"
	"time"
)

// Clock supplies the "current time or height" deadlines are compared to.
type Clock interface {
	Now(ctx context.Context) uint64
}

// WallClock reports unix seconds.
type WallClock struct{}

func (WallClock) Now(context.Context) uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a settable clock for tests and block-height style deployments.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now(context.Context) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by n and returns the new value.
func (c *ManualClock) Advance(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += n
	return c.now
}
