package gateway

import (
	"context"
	"sync"
)

// Predicate decides whether a decoded payload fulfills a waiter.
type Predicate func(payload map[string]any) bool

// Transform optionally maps the payload to the waiter's result. A nil
// transform yields the payload itself.
type Transform func(payload map[string]any) any

type waitResult struct {
	value any
	err   error
}

// Waiter is a single-fulfillment future for one gateway event. It is
// fulfilled or failed at most once and then removed from the registry.
type Waiter struct {
	ch        chan waitResult
	once      sync.Once
	cancelled chan struct{}
	cancelOne sync.Once
}

func newWaiter() *Waiter {
	return &Waiter{
		ch:        make(chan waitResult, 1),
		cancelled: make(chan struct{}),
	}
}

// Wait blocks until the waiter is fulfilled, cancelled, or ctx is done.
func (w *Waiter) Wait(ctx context.Context) (any, error) {
	select {
	case res := <-w.ch:
		return res.value, res.err
	case <-w.cancelled:
		return nil, context.Canceled
	case <-ctx.Done():
		w.Cancel()
		return nil, ctx.Err()
	}
}

// Cancel abandons the wait. Idempotent; a cancelled waiter is pruned on
// the next frame scan without side effects.
func (w *Waiter) Cancel() {
	w.cancelOne.Do(func() { close(w.cancelled) })
}

func (w *Waiter) isCancelled() bool {
	select {
	case <-w.cancelled:
		return true
	default:
		return false
	}
}

func (w *Waiter) fulfill(value any) {
	w.once.Do(func() { w.ch <- waitResult{value: value} })
}

func (w *Waiter) fail(err error) {
	w.once.Do(func() { w.ch <- waitResult{err: err} })
}

type listenerEntry struct {
	event     string
	predicate Predicate
	transform Transform
	waiter    *Waiter
}

// listenerSet is the registry of pending event waiters. Scan order is
// insertion order, and multiple listeners for the same event may all fire
// from a single frame.
type listenerSet struct {
	mu      sync.Mutex
	entries []*listenerEntry
}

func (s *listenerSet) add(event string, predicate Predicate, transform Transform) *Waiter {
	w := newWaiter()
	s.mu.Lock()
	s.entries = append(s.entries, &listenerEntry{
		event:     event,
		predicate: predicate,
		transform: transform,
		waiter:    w,
	})
	s.mu.Unlock()
	return w
}

// dispatch fulfills matching waiters for an event. Removal indices are
// collected first and deleted in reverse to avoid mutating the slice
// mid-iteration.
func (s *listenerSet) dispatch(event string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []int
	for i, entry := range s.entries {
		if entry.event != event {
			continue
		}

		if entry.waiter.isCancelled() {
			removed = append(removed, i)
			continue
		}

		if entry.predicate != nil && !entry.predicate(payload) {
			continue
		}

		result := any(payload)
		if entry.transform != nil {
			result = entry.transform(payload)
		}
		entry.waiter.fulfill(result)
		removed = append(removed, i)
	}

	for i := len(removed) - 1; i >= 0; i-- {
		idx := removed[i]
		s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	}
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
