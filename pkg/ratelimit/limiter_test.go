package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleep struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func TestRandomDelayBounds(t *testing.T) {
	rec := &recordingSleep{}
	d, err := NewRandomDelay(2, 4, WithSleep(rec.sleep))
	require.NoError(t, err)

	seen := map[time.Duration]bool{}
	for i := 0; i < 300; i++ {
		require.NoError(t, d.Wait(context.Background()))
	}
	for _, delay := range rec.delays {
		assert.GreaterOrEqual(t, delay, 2*time.Second)
		assert.LessOrEqual(t, delay, 4*time.Second)
		assert.Zero(t, delay%time.Second, "delay must be whole seconds")
		seen[delay] = true
	}
	assert.Len(t, seen, 3, "every value in the inclusive range should occur")
}

func TestRandomDelayInjectedSource(t *testing.T) {
	d, err := NewRandomDelay(2, 4, WithIntN(func(n int) int {
		assert.Equal(t, 3, n)
		return n - 1
	}))
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, d.Next())
}

func TestRandomDelayEqualBounds(t *testing.T) {
	d, err := NewRandomDelay(0, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), d.Next())
	assert.NoError(t, d.Wait(context.Background()))
}

func TestRandomDelayInvalidBounds(t *testing.T) {
	_, err := NewRandomDelay(-1, 2)
	assert.Error(t, err)

	_, err = NewRandomDelay(5, 3)
	assert.Error(t, err)
}

func TestRandomDelayCancellation(t *testing.T) {
	d, err := NewRandomDelay(60, 60)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err = d.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateCap(t *testing.T) {
	assert.Nil(t, NewRateCap(0))

	var nilCap *RateCap
	assert.NoError(t, nilCap.Wait(context.Background()))

	rc := NewRateCap(6000) // one every 10ms
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rc.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestChainStopsAtFirstError(t *testing.T) {
	failing := &recordingSleep{err: errors.New("interrupted")}
	first, err := NewRandomDelay(1, 1, WithSleep(failing.sleep))
	require.NoError(t, err)

	after := &recordingSleep{}
	second, err := NewRandomDelay(1, 1, WithSleep(after.sleep))
	require.NoError(t, err)

	err = Chain{first, nil, second}.Wait(context.Background())
	assert.EqualError(t, err, "interrupted")
	assert.Empty(t, after.delays)
}

func TestNew(t *testing.T) {
	l, err := New(2, 4, 0)
	require.NoError(t, err)
	assert.IsType(t, &RandomDelay{}, l)

	l, err = New(2, 4, 30)
	require.NoError(t, err)
	assert.IsType(t, Chain{}, l)

	_, err = New(4, 2, 0)
	assert.Error(t, err)
}
