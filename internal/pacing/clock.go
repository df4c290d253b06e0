// Package pacing spaces outbound API requests by handing out delivery slots
// from a single shared "next allowed slot" timestamp.
package pacing

import (
	"sync"
	"time"
)

// Default pacing values.
const (
	DefaultQuantum       = 350 * time.Millisecond
	DefaultIdleThreshold = 200 * time.Millisecond
	DefaultIdleStep      = 210 * time.Millisecond
)

// Clock hands out pacing slots. Safe for concurrent use.
//
// When a slot is already reserved in the future, the next slot is stacked
// one quantum behind it. Otherwise the clock was idle: if it has been idle
// for at least the idle threshold the slot is "now", else it is now plus
// the idle step.
type Clock struct {
	mu   sync.Mutex
	next int64 // unix ms

	quantum       int64
	idleThreshold int64
	idleStep      int64
	now           func() time.Time
}

// Option configures Clock.
type Option func(*Clock)

// WithQuantum sets the spacing between stacked slots.
func WithQuantum(d time.Duration) Option {
	return func(c *Clock) {
		c.quantum = d.Milliseconds()
	}
}

// WithIdleThreshold sets how long the clock must lag behind now to count as idle.
func WithIdleThreshold(d time.Duration) Option {
	return func(c *Clock) {
		c.idleThreshold = d.Milliseconds()
	}
}

// WithIdleStep sets the offset used when the clock only just caught up with now.
func WithIdleStep(d time.Duration) Option {
	return func(c *Clock) {
		c.idleStep = d.Milliseconds()
	}
}

// WithNow overrides the time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		c.now = now
	}
}

// NewClock creates a Clock whose next slot starts at the current time.
func NewClock(opts ...Option) *Clock {
	c := &Clock{
		quantum:       DefaultQuantum.Milliseconds(),
		idleThreshold: DefaultIdleThreshold.Milliseconds(),
		idleStep:      DefaultIdleStep.Milliseconds(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.next = c.now().UnixMilli()
	return c
}

// Reserve advances the clock and returns the slot at which the caller's job
// should be delivered. The read-compute-write runs under one lock.
func (c *Clock) Reserve() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixMilli()
	drift := c.next - now

	switch {
	case drift > 0:
		c.next += c.quantum
	case -drift >= c.idleThreshold:
		c.next = now
	default:
		c.next = now + c.idleStep
	}

	return time.UnixMilli(c.next)
}

// Reset zeroes the next slot so the following Reserve behaves as after idleness.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = 0
}

// Next returns the currently reserved slot without advancing the clock.
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.UnixMilli(c.next)
}
