package client

import (
	"context"
	"strings"
	"sync"
)

// EventHandler is a named handler registered for one event type.
type EventHandler func(data ...any)

// WaitPredicate filters dispatched event data for a waiter.
type WaitPredicate func(data ...any) bool

type waitResult struct {
	value any
	err   error
}

// Waiter is a cancellable single-fulfillment future handed out by WaitFor.
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

// Wait blocks for fulfillment, cancellation, or ctx expiry.
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

// Cancel abandons the wait; the entry is pruned on the next dispatch.
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

type busEntry struct {
	predicate WaitPredicate
	waiter    *Waiter
}

// Bus is the event dispatch fan-out: named handlers plus one-shot waiters,
// both keyed by lower-cased event type. Handlers and waiters fire in
// registration order.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]EventHandler
	waiters  map[string][]*busEntry
}

func newBus() *Bus {
	return &Bus{
		handlers: make(map[string][]EventHandler),
		waiters:  make(map[string][]*busEntry),
	}
}

// On registers a handler for an event type.
func (b *Bus) On(event string, h EventHandler) {
	event = strings.ToLower(event)
	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], h)
	b.mu.Unlock()
}

// WaitFor registers a one-shot waiter. A nil predicate matches the first
// dispatch of the event.
func (b *Bus) WaitFor(event string, predicate WaitPredicate) *Waiter {
	event = strings.ToLower(event)
	w := newWaiter()
	b.mu.Lock()
	b.waiters[event] = append(b.waiters[event], &busEntry{predicate: predicate, waiter: w})
	b.mu.Unlock()
	return w
}

// Dispatch fans an event out: waiters first, then named handlers.
// Fulfilled and cancelled waiters are removed; indices are collected
// before deletion to avoid mutating the list mid-scan.
func (b *Bus) Dispatch(event string, data ...any) {
	event = strings.ToLower(event)

	b.mu.Lock()
	entries := b.waiters[event]

	var removed []int
	for i, entry := range entries {
		if entry.waiter.isCancelled() {
			removed = append(removed, i)
			continue
		}
		if entry.predicate != nil && !entry.predicate(data...) {
			continue
		}
		entry.waiter.fulfill(waitValue(data))
		removed = append(removed, i)
	}
	for i := len(removed) - 1; i >= 0; i-- {
		idx := removed[i]
		entries = append(entries[:idx], entries[idx+1:]...)
	}
	if len(entries) == 0 {
		delete(b.waiters, event)
	} else {
		b.waiters[event] = entries
	}

	handlers := make([]EventHandler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.Unlock()

	for _, h := range handlers {
		h(data...)
	}
}

// waitValue mirrors the event arity: no data yields nil, one argument is
// unwrapped, more stay a slice.
func waitValue(data []any) any {
	switch len(data) {
	case 0:
		return nil
	case 1:
		return data[0]
	default:
		return data
	}
}
