// Package kudos clicks kudos controls found by the feed scanner.
package kudos

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ibeckermayer/kudos4me/internal/clock"
	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/session"
)

const (
	// DefaultCooldown paces successful kudos to stay clear of Strava's
	// automation defenses.
	DefaultCooldown = time.Second
	// DefaultClickTimeout bounds a single click attempt.
	DefaultClickTimeout = 5 * time.Second
)

// Actuator gives kudos one control at a time.
type Actuator struct {
	clock        clock.Clock
	cooldown     time.Duration
	clickTimeout time.Duration
}

// NewActuator creates an actuator. Zero durations fall back to the defaults.
func NewActuator(clk clock.Clock, cooldown, clickTimeout time.Duration) *Actuator {
	if clk == nil {
		clk = clock.Real()
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if clickTimeout <= 0 {
		clickTimeout = DefaultClickTimeout
	}
	return &Actuator{clock: clk, cooldown: cooldown, clickTimeout: clickTimeout}
}

// Activate clicks c once if it is still the only unfilled control in its
// scope, then waits out the cooldown. It reports whether a click was issued.
// Failures are logged and never retried here.
func (a *Actuator) Activate(ctx context.Context, c feed.Control) bool {
	if c.Button == nil || c.State != feed.ControlUnfilled {
		return false
	}

	n, err := c.Button.Count(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to re-check kudos control", "owner", c.OwnerID, "err", err)
		return false
	}
	if n != 1 {
		slog.DebugContext(ctx, "kudos control changed since scan", "owner", c.OwnerID, "matches", n)
		return false
	}

	if err := c.Button.Click(ctx, session.ClickOptions{Timeout: a.clickTimeout}); err != nil {
		if errors.Is(err, session.ErrTimeout) {
			slog.WarnContext(ctx, "kudos click timed out", "owner", c.OwnerID)
		} else {
			slog.WarnContext(ctx, "kudos click failed", "owner", c.OwnerID, "err", err)
		}
		return false
	}

	if err := a.clock.Sleep(ctx, a.cooldown); err != nil {
		slog.DebugContext(ctx, "kudos cooldown interrupted", "err", err)
	}
	return true
}
