package testutil

import "sync"

// DefaultEpoch is the first timestamp a DeterministicClock hands out unless
// told otherwise: 2023-11-14T22:13:20Z.
const DefaultEpoch int64 = 1700000000

// DeterministicClock is a record-timestamp source for tests. Each call to Now
// returns one second later than the previous call, so a record updated after
// it was created always has updated_at > created_at.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	calls int64
}

// NewDeterministicClock creates a clock whose first Now returns start.
func NewDeterministicClock(start int64) *DeterministicClock {
	return &DeterministicClock{start: start}
}

// Now returns the next timestamp.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.start + c.calls
	c.calls++
	return now
}

// Calls returns how many timestamps have been handed out.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock so the next Now returns start again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}
