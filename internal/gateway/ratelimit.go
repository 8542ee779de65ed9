package gateway

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Default send budget: 110 frames per minute leaves room for at least ten
// heartbeats alongside ordinary traffic.
const (
	defaultSendBudget = 110
	defaultSendWindow = time.Minute
)

// sendLimiter is the token bucket for outbound frames. Heartbeats bypass
// it; everything else waits for a token.
type sendLimiter struct {
	limiter *rate.Limiter
}

func newSendLimiter(budget int, window time.Duration) *sendLimiter {
	if budget <= 0 {
		budget = defaultSendBudget
	}
	if window <= 0 {
		window = defaultSendWindow
	}
	return &sendLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(budget)/window.Seconds()), budget),
	}
}

// wait blocks until a send token is available or ctx is done.
func (l *sendLimiter) wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// limited reports whether a send would block right now.
func (l *sendLimiter) limited() bool {
	return l.limiter.Tokens() < 1
}
