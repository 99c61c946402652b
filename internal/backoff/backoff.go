// Package backoff implements a stateful accumulator producing the next
// retry delay in a bounded exponential sequence: doubling from a fixed
// floor up to a ceiling (1, 2, 4, ... 32, 60, 60, ...), the common shape
// used by clients retrying against a backend that may be transiently down.
package backoff

import (
	"fmt"
	"time"
)

const (
	DefaultFloor   = time.Second
	DefaultCeiling = time.Minute
)

// Counter produces successive retry delays. It has no concurrency
// guarantees of its own — the Table facade holds one instance per table
// and only calls it from its single-writer reconnect path.
type Counter struct {
	floor   time.Duration
	ceiling time.Duration
	current time.Duration
}

// New builds a Counter with the default 1s floor and 1min ceiling.
func New() *Counter {
	return NewWithBounds(DefaultFloor, DefaultCeiling)
}

// NewWithBounds builds a Counter with explicit bounds, for backends that
// need a different retry envelope.
func NewWithBounds(floor, ceiling time.Duration) *Counter {
	return &Counter{floor: floor, ceiling: ceiling, current: floor}
}

// CurrentMillis returns the current delay in milliseconds.
func (c *Counter) CurrentMillis() int64 {
	return c.current.Milliseconds()
}

// Current returns the current delay as a human-readable string, e.g.
// "1 sec", "2 sec", "1 min".
func (c *Counter) Current() string {
	return formatDuration(c.current)
}

// Increment advances the counter to the next delay in the sequence,
// doubling up to the ceiling. Calling Increment once the ceiling has been
// reached is idempotent.
func (c *Counter) Increment() {
	next := c.current * 2
	if next > c.ceiling || next <= 0 {
		next = c.ceiling
	}
	c.current = next
}

// Reset returns the counter to its floor.
func (c *Counter) Reset() {
	c.current = c.floor
}

func formatDuration(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		n := int64(d / time.Minute)
		if n == 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d min", n)
	}
	n := int64(d / time.Second)
	if n == 1 {
		return "1 sec"
	}
	return fmt.Sprintf("%d sec", n)
}
