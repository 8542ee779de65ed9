package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu     sync.Mutex
	pings  int
	forced bool
	fail   bool
}

func (f *fakeTarget) sendHeartbeat(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("socket gone")
	}
	f.pings++
	return nil
}

func (f *fakeTarget) forceClose() {
	f.mu.Lock()
	f.forced = true
	f.mu.Unlock()
}

func (f *fakeTarget) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeTarget) wasForced() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forced
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKeepAliveTest(t *testing.T, target *fakeTarget) (*keepAlive, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	k := newKeepAlive(target, 15*time.Second, 60*time.Second, mock, discardLogger())
	k.start()
	t.Cleanup(k.stop)

	// Let the monitor goroutine register its ticker before moving time.
	time.Sleep(10 * time.Millisecond)
	return k, mock
}

func TestKeepAlive_SendsHeartbeatsOnInterval(t *testing.T) {
	target := &fakeTarget{}
	k, mock := startKeepAliveTest(t, target)

	for i := 0; i < 3; i++ {
		mock.Add(15 * time.Second)
		k.tick() // the server answered
	}

	require.Eventually(t, func() bool {
		return target.pingCount() >= 3
	}, time.Second, 5*time.Millisecond)

	assert.False(t, target.wasForced())
	assert.False(t, k.stopped())
}

func TestKeepAlive_SilenceForcesClose(t *testing.T) {
	target := &fakeTarget{}
	k, mock := startKeepAliveTest(t, target)

	// No ticks: after the timeout elapses the next interval check trips.
	for i := 0; i < 6; i++ {
		mock.Add(15 * time.Second)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return target.wasForced() && k.stopped()
	}, time.Second, 5*time.Millisecond, "stalled connection was never force-closed")
}

func TestKeepAlive_TickPreventsForceClose(t *testing.T) {
	target := &fakeTarget{}
	k, mock := startKeepAliveTest(t, target)

	for i := 0; i < 8; i++ {
		mock.Add(15 * time.Second)
		k.tick()
		time.Sleep(2 * time.Millisecond)
	}

	assert.False(t, target.wasForced(), "live connection was force-closed")
	assert.False(t, k.stopped())
}

func TestKeepAlive_SendFailureStopsMonitor(t *testing.T) {
	target := &fakeTarget{fail: true}
	k, mock := startKeepAliveTest(t, target)

	mock.Add(15 * time.Second)

	require.Eventually(t, k.stopped, time.Second, 5*time.Millisecond)
	assert.False(t, target.wasForced(), "send failure should stop quietly, not force-close")
}

func TestKeepAlive_StopIdempotent(t *testing.T) {
	target := &fakeTarget{}
	k, _ := startKeepAliveTest(t, target)

	k.stop()
	k.stop()

	require.Eventually(t, k.stopped, time.Second, 5*time.Millisecond)
}
