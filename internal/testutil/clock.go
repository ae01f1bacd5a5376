package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a FixedClock reports.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FixedClock is a deterministic wall clock for tests.
//
// Each call to Now advances the clock by one second from Epoch, so node
// timestamps are distinct, increasing and identical across runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	ticks int64
}

// NewFixedClock creates a clock whose first Now returns Epoch.
func NewFixedClock() *FixedClock {
	return &FixedClock{}
}

// Now returns the next instant. Pass the method value as a clock:
//
//	graph.New(s, graph.WithClock(clock.Now))
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.ticks) * time.Second)
	c.ticks++
	return t
}

// Ticks returns how many times Now has been called.
func (c *FixedClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock so the next Now returns Epoch.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
