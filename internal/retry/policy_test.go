package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayCapped(t *testing.T) {
	p := NewPolicy(50*time.Millisecond, 5)
	p.Max = 160 * time.Millisecond

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{3, 160 * time.Millisecond}, // capped
		{4, 160 * time.Millisecond},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, p.Delay(c.attempt), "attempt %d", c.attempt)
	}
}

func TestDoRetriesThenSucceeds(t *testing.T) {
	p := Policy{Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 2}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	p := Policy{Initial: time.Millisecond, Max: time.Millisecond, MaxRetries: 1}

	boom := errors.New("still failing")
	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls) // first attempt + one retry
}

func TestDoHonorsCancellation(t *testing.T) {
	p := Policy{Initial: time.Minute, Max: time.Minute, MaxRetries: 3}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := p.Do(ctx, func(ctx context.Context) error {
		return errors.New("transient")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
