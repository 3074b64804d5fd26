package repo

import (
	"sync"
	"time"
)

// Clock issues strictly increasing Unix millisecond stamps.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewClock returns a Clock reading now.
func NewClock(now func() time.Time) *Clock {
	return &Clock{now: now}
}

// Next returns max(now, last+1) and remembers it.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.now().UnixMilli()
	if n <= c.last {
		n = c.last + 1
	}
	c.last = n
	return n
}

// Observe raises the floor to ts.
func (c *Clock) Observe(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts > c.last {
		c.last = ts
	}
}

// Last returns the most recent stamp issued or observed.
func (c *Clock) Last() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
