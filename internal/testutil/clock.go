package testutil

import "sync"

// TraceClock is a resettable monotonic sequence source for trace
// events. The same scenario replayed against a fresh clock produces
// identical sequence numbers, which golden comparison depends on.
//
// Thread-safety: all methods are safe for concurrent use.
type TraceClock struct {
	mu  sync.Mutex
	seq int64
}

// Next returns the next sequence number. The first call returns 1.
func (c *TraceClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the latest issued sequence number.
func (c *TraceClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset returns the clock to its initial state.
func (c *TraceClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
