package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	defaultHeartbeatInterval = 15 * time.Second
	defaultHeartbeatTimeout  = 60 * time.Second

	// Bound on how long a single heartbeat send may block.
	heartbeatSendWait = 10 * time.Second
)

// heartbeater is the slice of Session the keep-alive monitor drives.
type heartbeater interface {
	sendHeartbeat(ctx context.Context) error
	forceClose()
}

// keepAlive sends periodic Ping frames and force-closes the session when
// no frame has been received within the heartbeat timeout. It runs on its
// own goroutine so it keeps working while the receive loop is blocked.
type keepAlive struct {
	target   heartbeater
	interval time.Duration
	timeout  time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	lastRecv time.Time
	lastSend time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newKeepAlive(target heartbeater, interval, timeout time.Duration, clk clock.Clock, logger *slog.Logger) *keepAlive {
	if interval <= 0 {
		interval = defaultHeartbeatInterval
	}
	if timeout <= 0 {
		timeout = defaultHeartbeatTimeout
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &keepAlive{
		target:   target,
		interval: interval,
		timeout:  timeout,
		clock:    clk,
		logger:   logger,
		lastRecv: clk.Now(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (k *keepAlive) start() {
	go k.run()
}

func (k *keepAlive) run() {
	defer close(k.doneCh)

	ticker := k.clock.Ticker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-k.stopCh:
			return
		case <-ticker.C:
		}

		if k.clock.Now().Sub(k.lastReceived()) > k.timeout {
			k.logger.Warn("gateway stalled, forcing close",
				"timeout", k.timeout,
				"last_recv", k.lastReceived(),
			)
			k.target.forceClose()
			k.stop()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), heartbeatSendWait)
		err := k.target.sendHeartbeat(ctx)
		cancel()
		if err != nil {
			// The owning reconnect loop observes the closed socket.
			k.logger.Debug("heartbeat send failed", "error", err)
			k.stop()
			return
		}

		k.mu.Lock()
		k.lastSend = k.clock.Now()
		k.mu.Unlock()
	}
}

// tick records a received frame. Called by the session on every inbound
// frame; this timestamp is the only state shared across goroutines.
func (k *keepAlive) tick() {
	k.mu.Lock()
	k.lastRecv = k.clock.Now()
	k.mu.Unlock()
}

func (k *keepAlive) lastReceived() time.Time {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastRecv
}

// stop is idempotent and safe to call concurrently with the timer tick.
func (k *keepAlive) stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
}

// stopped reports whether the monitor goroutine has exited.
func (k *keepAlive) stopped() bool {
	select {
	case <-k.doneCh:
		return true
	default:
		return false
	}
}
