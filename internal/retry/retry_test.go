package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/kudos4me/internal/clock"
)

func TestPolicyDoSucceedsAfterFailures(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	p := Policy{Attempts: 3, Backoff: time.Second, Clock: clk}

	calls := 0
	err := p.Do(context.Background(), "login", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Second, time.Second}, clk.Sleeps())
}

func TestPolicyDoExhausted(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	p := Policy{Attempts: 2, Backoff: 500 * time.Millisecond, Clock: clk}
	boom := errors.New("boom")

	calls := 0
	err := p.Do(context.Background(), "login", func(ctx context.Context) error {
		calls++
		return boom
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 2, exhausted.Attempts)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
	require.Len(t, clk.Sleeps(), 1)
}

func TestPolicyDoZeroAttemptsRunsOnce(t *testing.T) {
	p := Policy{Clock: clock.NewFake(time.Unix(0, 0))}

	calls := 0
	err := p.Do(context.Background(), "op", func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestPolicyDoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, Backoff: time.Second, Clock: clock.NewFake(time.Unix(0, 0))}

	calls := 0
	err := p.Do(ctx, "op", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("nope")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestBudget(t *testing.T) {
	b := NewBudget(3)
	require.Equal(t, 3, b.Remaining())

	require.False(t, b.Spend())
	require.Equal(t, 2, b.Remaining())
	require.False(t, b.Spend())
	require.True(t, b.Spend())
	require.Equal(t, 0, b.Remaining())
	require.True(t, b.Spend(), "stays exhausted")
	require.Equal(t, 3, b.Max())
}

func TestBudgetZero(t *testing.T) {
	require.True(t, NewBudget(0).Spend())
	require.True(t, NewBudget(-2).Spend())
}
