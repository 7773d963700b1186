// Package concurrency provides a small bounded-concurrency primitive used
// by the Injector to cap the number of simultaneous sends to the
// multiplexer, without a worker pool.
package concurrency

import (
	"context"
	"sync/atomic"
)

// DefaultLimit matches the spec's default injector_concurrency.
const DefaultLimit = 4

// Limiter is a simple counting semaphore. Unlike a full worker pool it
// does not own goroutines or a lifecycle; callers acquire a slot, do their
// work, and release it, which is all the Injector needs to bound
// concurrent multiplexer calls without introducing a supervised worker
// abstraction the domain doesn't otherwise have a use for.
type Limiter struct {
	slots  chan struct{}
	inUse  atomic.Int64
	limit  int
}

// New creates a Limiter allowing up to n concurrent holders. n <= 0 falls
// back to DefaultLimit.
func New(n int) *Limiter {
	if n <= 0 {
		n = DefaultLimit
	}
	return &Limiter{slots: make(chan struct{}, n), limit: n}
}

// Acquire blocks until a slot is free or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
		l.inUse.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (l *Limiter) Release() {
	l.inUse.Add(-1)
	<-l.slots
}

// InUse reports the number of slots currently held, for diagnostics.
func (l *Limiter) InUse() int64 {
	return l.inUse.Load()
}

// Limit reports the configured maximum concurrency.
func (l *Limiter) Limit() int {
	return l.limit
}
