// Package signal provides a single-slot mailbox for handing state changes
// from one goroutine to another.
//
// A Signal holds at most one pending value. Writing replaces a value that
// has not been taken yet, so a consumer that falls behind observes only the
// most recent state and never the history in between. Each value is taken
// by exactly one waiter; a publisher that serves several consumers keeps
// one Signal per consumer.
package signal

import (
	"context"
	"sync"
)

// Signal is a last-value-wins mailbox. The zero value is not usable; create
// one with New.
type Signal[T any] struct {
	// mu serializes writers so the drain-then-send in Signal never blocks
	mu sync.Mutex
	ch chan T
}

// New returns an empty Signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{ch: make(chan T, 1)}
}

// Signal stores v, replacing any pending value. It never blocks.
func (s *Signal[T]) Signal(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

// Wait blocks until a value is available, then takes and returns it. A
// pending value is returned immediately. If ctx ends first the zero value
// and ctx.Err() are returned.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	select {
	case v := <-s.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// C returns the channel values are delivered on, for use in a select
// alongside other events. Receiving from it takes the pending value.
func (s *Signal[T]) C() <-chan T {
	return s.ch
}

// TryTake takes the pending value without blocking.
func (s *Signal[T]) TryTake() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
