package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendLimiter_BudgetWithinWindow(t *testing.T) {
	l := newSendLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		start := time.Now()
		require.NoError(t, l.wait(ctx))
		assert.Less(t, time.Since(start), 100*time.Millisecond, "send %d should not block", i)
	}

	assert.True(t, l.limited(), "limiter should report limited after the budget is spent")
}

func TestSendLimiter_BlocksPastBudget(t *testing.T) {
	l := newSendLimiter(1, time.Minute)
	require.NoError(t, l.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.Error(t, l.wait(ctx), "send past the budget should block until the window refills")
}

func TestSendLimiter_Defaults(t *testing.T) {
	l := newSendLimiter(0, 0)
	assert.InDelta(t, float64(defaultSendBudget), l.limiter.Tokens(), 1)
	assert.False(t, l.limited())
}
