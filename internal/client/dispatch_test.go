package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_HandlersFireInOrder(t *testing.T) {
	bus := newBus()
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		bus.On("message", func(data ...any) { order = append(order, i) })
	}

	bus.Dispatch("message", "hi")
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestBus_EventNamesCaseInsensitive(t *testing.T) {
	bus := newBus()
	fired := false

	bus.On("Message", func(data ...any) { fired = true })
	bus.Dispatch("MESSAGE")

	assert.True(t, fired)
}

func TestBus_WaitForUnwrapsSingleValue(t *testing.T) {
	bus := newBus()
	w := bus.WaitFor("message", nil)

	bus.Dispatch("message", "payload")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	value, err := w.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "payload", value)
}

func TestBus_WaitForArity(t *testing.T) {
	bus := newBus()

	none := bus.WaitFor("empty", nil)
	many := bus.WaitFor("pair", nil)

	bus.Dispatch("empty")
	bus.Dispatch("pair", 1, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	value, err := none.Wait(ctx)
	require.NoError(t, err)
	assert.Nil(t, value)

	value, err = many.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, value)
}

func TestBus_WaitForPredicate(t *testing.T) {
	bus := newBus()

	w := bus.WaitFor("message", func(data ...any) bool {
		return len(data) == 1 && data[0] == "wanted"
	})

	bus.Dispatch("message", "other")
	bus.Dispatch("message", "wanted")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	value, err := w.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "wanted", value)
}

func TestBus_WaitersFulfilledOnce(t *testing.T) {
	bus := newBus()
	w := bus.WaitFor("message", nil)

	bus.Dispatch("message", "first")
	bus.Dispatch("message", "second")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	value, err := w.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", value)
}

func TestBus_CancelledWaiterSkipped(t *testing.T) {
	bus := newBus()

	cancelled := bus.WaitFor("message", nil)
	live := bus.WaitFor("message", nil)
	cancelled.Cancel()

	bus.Dispatch("message", "data")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := cancelled.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	value, err := live.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "data", value)
}

func TestBus_WaitersBeforeHandlers(t *testing.T) {
	bus := newBus()
	var order []string

	w := bus.WaitFor("message", func(data ...any) bool {
		order = append(order, "waiter")
		return true
	})
	bus.On("message", func(data ...any) { order = append(order, "handler") })

	bus.Dispatch("message", "x")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := w.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"waiter", "handler"}, order)
}
