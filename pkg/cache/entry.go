package cache

import (
	"context"
	"time"
)

// DefaultTTL is applied when a caller passes a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Future is the shared outcome of a single producer invocation.
// Every waiter observes the same value or error, including waiters that
// arrive after the producer has finished.
type Future[V any] struct {
	done  chan struct{}
	value V
	err   error
}

func newFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Resolved returns a future that is already settled with value.
func Resolved[V any](value V) *Future[V] {
	f := newFuture[V]()
	f.settle(value, nil)
	return f
}

// Failed returns a future that is already settled with err.
func Failed[V any](err error) *Future[V] {
	var zero V
	f := newFuture[V]()
	f.settle(zero, err)
	return f
}

func (f *Future[V]) settle(value V, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the future has settled.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done.
// Cancelling ctx only stops this waiter; the producer keeps running for
// the other waiters.
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Settled reports whether the future has a value or error.
func (f *Future[V]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Entry is one slot of the cache map. Entries are replaced, never mutated.
type Entry[V any] struct {
	future *Future[V]

	// CreatedAt is when the entry was stored.
	CreatedAt time.Time

	// TTL is how long the entry stays valid after CreatedAt.
	TTL time.Duration
}

// IsExpired returns true once now - CreatedAt >= TTL.
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= e.TTL
}

// Remaining returns the time left before expiry, or 0 if already expired.
func (e *Entry[V]) Remaining(now time.Time) time.Duration {
	left := e.TTL - now.Sub(e.CreatedAt)
	if left < 0 {
		return 0
	}
	return left
}
