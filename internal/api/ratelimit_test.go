package api

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestBucketTable_SerializesSameKey(t *testing.T) {
	table := newBucketTable()
	ctx := context.Background()

	release1, err := table.acquire(ctx, "k")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		release2, err := table.acquire(ctx, "k")
		if err != nil {
			t.Errorf("second acquire failed: %v", err)
			return
		}
		close(acquired)
		release2()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while bucket was held")
	case <-time.After(50 * time.Millisecond):
	}

	release1()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestBucketTable_IndependentKeys(t *testing.T) {
	table := newBucketTable()
	ctx := context.Background()

	release1, err := table.acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer release1()

	done := make(chan struct{})
	go func() {
		release2, err := table.acquire(ctx, "b")
		if err != nil {
			t.Errorf("acquire b: %v", err)
			return
		}
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on a different key blocked behind an unrelated bucket")
	}
}

func TestBucketTable_AcquireRespectsContext(t *testing.T) {
	table := newBucketTable()

	release, err := table.acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := table.acquire(ctx, "k"); err != context.DeadlineExceeded {
		t.Errorf("acquire err = %v, want context.DeadlineExceeded", err)
	}
}

func TestBucketTable_EvictsIdleBuckets(t *testing.T) {
	table := newBucketTable()
	ctx := context.Background()

	for i := 0; i < maxIdleBuckets+50; i++ {
		release, err := table.acquire(ctx, fmt.Sprintf("bucket-%d", i))
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		release()
	}

	if got := table.len(); got > maxIdleBuckets {
		t.Errorf("table holds %d buckets, want at most %d", got, maxIdleBuckets)
	}
}

func TestBucketTable_EvictionPinsHeldBuckets(t *testing.T) {
	table := newBucketTable()
	ctx := context.Background()

	release, err := table.acquire(ctx, "pinned")
	if err != nil {
		t.Fatalf("acquire pinned: %v", err)
	}
	defer release()

	for i := 0; i < maxIdleBuckets+50; i++ {
		r, err := table.acquire(ctx, fmt.Sprintf("filler-%d", i))
		if err != nil {
			t.Fatalf("acquire filler %d: %v", i, err)
		}
		r()
	}

	table.mu.Lock()
	_, ok := table.buckets["pinned"]
	table.mu.Unlock()
	if !ok {
		t.Error("held bucket was evicted")
	}
}

func TestBucketTable_FreshBucketSurvivesEviction(t *testing.T) {
	table := newBucketTable()
	ctx := context.Background()

	// Overfill the table with idle buckets so the next creation evicts.
	for i := 0; i < maxIdleBuckets+40; i++ {
		r, err := table.acquire(ctx, fmt.Sprintf("idle-%d", i))
		if err != nil {
			t.Fatalf("acquire idle %d: %v", i, err)
		}
		r()
	}

	release, err := table.acquire(ctx, "fresh")
	if err != nil {
		t.Fatalf("acquire fresh: %v", err)
	}

	table.mu.Lock()
	held, ok := table.buckets["fresh"]
	table.mu.Unlock()
	if !ok {
		t.Fatal("just-created bucket was evicted while its creator holds it")
	}
	if !held.held() {
		t.Fatal("surviving bucket is not the one being held")
	}

	// A second caller for the same key must queue behind the holder, not
	// run concurrently on a replacement bucket.
	second := make(chan struct{})
	go func() {
		r, err := table.acquire(ctx, "fresh")
		if err != nil {
			t.Errorf("second acquire: %v", err)
			return
		}
		close(second)
		r()
	}()

	select {
	case <-second:
		t.Fatal("second acquire ran concurrently with the first holder")
	case <-time.After(50 * time.Millisecond):
	}

	release()

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("second acquire never proceeded after release")
	}
}

func TestCooldownGate_StartsOpen(t *testing.T) {
	gate := newCooldownGate()

	if gate.isShut() {
		t.Error("fresh gate reports shut")
	}
	if err := gate.wait(context.Background()); err != nil {
		t.Errorf("wait on open gate: %v", err)
	}
}

func TestCooldownGate_ShutBlocksUntilRelease(t *testing.T) {
	gate := newCooldownGate()
	gate.shut()

	if !gate.isShut() {
		t.Fatal("gate not shut after shut()")
	}

	passed := make(chan struct{})
	go func() {
		if err := gate.wait(context.Background()); err != nil {
			t.Errorf("wait: %v", err)
		}
		close(passed)
	}()

	select {
	case <-passed:
		t.Fatal("wait returned while the gate was shut")
	case <-time.After(50 * time.Millisecond):
	}

	gate.release()

	select {
	case <-passed:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after release")
	}

	if gate.isShut() {
		t.Error("gate reports shut after release")
	}
}

func TestCooldownGate_WaitRespectsContext(t *testing.T) {
	gate := newCooldownGate()
	gate.shut()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := gate.wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("wait err = %v, want context.DeadlineExceeded", err)
	}
}

func TestCooldownGate_ShutIdempotent(t *testing.T) {
	gate := newCooldownGate()
	gate.shut()
	gate.shut()
	gate.release()

	if gate.isShut() {
		t.Error("double shut required double release")
	}
}
