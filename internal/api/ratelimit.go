package api

import (
	"context"
	"sync"
	"sync/atomic"
)

// maxIdleBuckets bounds the bucket table. Idle buckets beyond this are
// evicted; a bucket is only required to outlive its concurrent callers.
const maxIdleBuckets = 256

// bucket serializes in-flight requests sharing one rate-limit scope.
// The channel-based lock lets acquisition respect context cancellation.
type bucket struct {
	key     string
	ch      chan struct{} // capacity 1, holds a token while locked
	waiters atomic.Int32
}

func (b *bucket) lock(ctx context.Context) error {
	select {
	case b.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *bucket) unlock() {
	<-b.ch
}

func (b *bucket) held() bool {
	return len(b.ch) == 1
}

// bucketTable lazily creates buckets keyed by Route.Bucket. Buckets are
// held by strong reference and evicted only while idle, so losing one
// merely resets its concurrency scope.
type bucketTable struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func newBucketTable() *bucketTable {
	return &bucketTable{buckets: make(map[string]*bucket)}
}

// acquire locks the bucket for key, creating it if absent. The returned
// release function is safe to call exactly once.
func (t *bucketTable) acquire(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{key: key, ch: make(chan struct{}, 1)}
		t.buckets[key] = b
	}
	// Count the caller before eviction may run, so a just-created bucket
	// is pinned and cannot be dropped while its creator still needs it.
	b.waiters.Add(1)
	if !ok {
		t.evictIdleLocked()
	}
	t.mu.Unlock()

	if err := b.lock(ctx); err != nil {
		b.waiters.Add(-1)
		return nil, err
	}

	return func() {
		b.unlock()
		b.waiters.Add(-1)
	}, nil
}

// evictIdleLocked drops unreferenced buckets once the table outgrows
// maxIdleBuckets. Buckets with waiters or a held lock are pinned.
func (t *bucketTable) evictIdleLocked() {
	if len(t.buckets) <= maxIdleBuckets {
		return
	}
	for key, b := range t.buckets {
		if b.waiters.Load() == 0 && !b.held() {
			delete(t.buckets, key)
		}
		if len(t.buckets) <= maxIdleBuckets {
			return
		}
	}
}

func (t *bucketTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// cooldownGate is the global rate-limit gate. It starts open; a global 429
// closes it for the reported delay, suspending every request across all
// buckets until it reopens.
type cooldownGate struct {
	mu   sync.Mutex
	open chan struct{} // closed channel means the gate is open
}

func newCooldownGate() *cooldownGate {
	ch := make(chan struct{})
	close(ch)
	return &cooldownGate{open: ch}
}

// wait blocks until the gate is open or ctx is done.
func (g *cooldownGate) wait(ctx context.Context) error {
	g.mu.Lock()
	ch := g.open
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shut closes the gate. Shutting an already-shut gate is a no-op.
func (g *cooldownGate) shut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.open:
		g.open = make(chan struct{})
	default:
	}
}

// release reopens the gate, waking all suspended requests.
func (g *cooldownGate) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.open:
	default:
		close(g.open)
	}
}

// isShut reports whether the gate is currently closed.
func (g *cooldownGate) isShut() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-g.open:
		return false
	default:
		return true
	}
}
