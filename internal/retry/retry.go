// Package retry holds the bounded retry policy shared by login and feed
// loading, and the futile-pass budget used by the scroll loop.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ibeckermayer/kudos4me/internal/clock"
)

// Policy retries an operation a fixed number of times with a constant
// backoff between attempts.
type Policy struct {
	Attempts int
	Backoff  time.Duration
	Clock    clock.Clock
}

// ExhaustedError is returned by Do when every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts failed: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs fn until it succeeds, the attempts are used up or ctx is done.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	clk := p.Clock
	if clk == nil {
		clk = clock.Real()
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(attempts-1)),
		ctx,
	)

	tried := 0
	err := backoff.RetryNotifyWithTimer(func() error {
		tried++
		return fn(ctx)
	}, b, func(err error, next time.Duration) {
		slog.WarnContext(ctx, "retrying", "op", op, "attempt", tried, "of", attempts, "backoff", next, "err", err)
	}, &clockTimer{ctx: ctx, clock: clk, c: make(chan time.Time, 1)})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return &ExhaustedError{Op: op, Attempts: tried, Last: err}
}

// clockTimer adapts clock.Clock to backoff.Timer so the fake clock can drive
// retries without real sleeps.
type clockTimer struct {
	ctx   context.Context
	clock clock.Clock
	c     chan time.Time
}

func (t *clockTimer) Start(d time.Duration) {
	if err := t.clock.Sleep(t.ctx, d); err != nil {
		return
	}
	select {
	case t.c <- t.clock.Now():
	default:
	}
}

func (t *clockTimer) Stop() {}

func (t *clockTimer) C() <-chan time.Time { return t.c }

// Budget counts down futile passes. It is never replenished.
type Budget struct {
	max       int
	remaining int
}

// NewBudget returns a Budget allowing n futile passes.
func NewBudget(n int) *Budget {
	n = max(n, 0)
	return &Budget{max: n, remaining: n}
}

// Spend records one futile pass and reports whether the budget is exhausted.
func (b *Budget) Spend() bool {
	if b.remaining > 0 {
		b.remaining--
	}
	return b.remaining == 0
}

// Remaining returns the passes left before exhaustion.
func (b *Budget) Remaining() int { return b.remaining }

// Max returns the initial budget.
func (b *Budget) Max() int { return b.max }
