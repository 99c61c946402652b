// Package scheduler provides a shared scheduling capability: reconnect
// attempts after the first synchronous retry run on an injected scheduler
// rather than blocking the calling thread. The capability is modeled as a
// one-method interface — Schedule takes a delay and a closure — so
// tests can swap in a virtual-time implementation to drive backoff
// deterministically.
package scheduler

import "time"

// Scheduler runs fn after delay elapses, without blocking the caller.
type Scheduler interface {
	Schedule(delay time.Duration, fn func())
}

// Real schedules work on the Go runtime's timer wheel via time.AfterFunc.
// This is the production implementation of the shared executor owned by
// the engine context.
type Real struct{}

func (Real) Schedule(delay time.Duration, fn func()) {
	time.AfterFunc(delay, fn)
}
