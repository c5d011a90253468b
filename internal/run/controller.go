// Package run drives one kudos run: log in, load the feed, then repeat
// scan → give kudos → decide until a budget or the feed runs out.
package run

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/kudos4me/internal/clock"
	"github.com/ibeckermayer/kudos4me/internal/fault"
	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/kudos"
	"github.com/ibeckermayer/kudos4me/internal/retry"
	"github.com/ibeckermayer/kudos4me/internal/session"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

// Authenticator logs the session in and identifies the logged-in athlete.
type Authenticator interface {
	// Login returns a fatal fault when the account cannot be logged in.
	Login(ctx context.Context, sess session.Session) error
	// ResolveSelf returns the logged-in athlete id.
	ResolveSelf(ctx context.Context, sess session.Session) (string, error)
}

// SnapshotFunc persists a page dump and returns where it went.
type SnapshotFunc func(ctx context.Context, html string) (string, error)

const (
	warmupPause  = 500 * time.Millisecond
	termsTimeout = 2 * time.Second
)

// Options configures a Controller.
type Options struct {
	Mode           types.Mode
	BaseURL        string
	EntriesPerPage int
	MaxDuration    time.Duration
	MaxEmptyPasses int
	ScrollStep     int
	ScrollPause    time.Duration
	WarmupScrolls  int
	Cooldown       time.Duration
	ClickTimeout   time.Duration
	// LoadRetry retries loading the dashboard. Its Clock is replaced by the
	// controller's.
	LoadRetry retry.Policy
}

// Controller runs the kudos state machine over one session.
type Controller struct {
	sess     session.Session
	auth     Authenticator
	opts     Options
	clock    clock.Clock
	scanner  *feed.Scanner
	actuator *kudos.Actuator
	snapshot SnapshotFunc
	newID    func() string
	// decided, when set, sees every pass outcome and the futile passes left.
	decided func(pass, given, retriesLeft int)
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(c *Controller) { c.clock = clk }
}

// WithSnapshots saves the page whenever a pass finds no feed entries.
func WithSnapshots(fn SnapshotFunc) Option {
	return func(c *Controller) { c.snapshot = fn }
}

// WithRunID fixes the id given to run summaries.
func WithRunID(id string) Option {
	return func(c *Controller) { c.newID = func() string { return id } }
}

// New creates a Controller that takes ownership of sess; Run closes it.
func New(sess session.Session, auth Authenticator, opts Options, options ...Option) *Controller {
	c := &Controller{
		sess:    sess,
		auth:    auth,
		opts:    opts,
		clock:   clock.Real(),
		scanner: feed.NewScanner(),
		newID:   uuid.NewString,
	}
	for _, o := range options {
		o(c)
	}
	c.opts.LoadRetry.Clock = c.clock
	c.actuator = kudos.NewActuator(c.clock, opts.Cooldown, opts.ClickTimeout)
	return c
}

type state int

const (
	stateLoggingIn state = iota
	stateLoading
	stateScanning
	stateActuating
	stateDeciding
)

func (s state) String() string {
	return [...]string{"logging in", "loading", "scanning", "actuating", "deciding"}[s]
}

// Run executes one run and always returns a summary. The error is non-nil
// only when the run could not proceed; fault.IsFatal tells login and
// session failures apart from cancellation.
func (c *Controller) Run(ctx context.Context) (types.RunSummary, error) {
	defer c.release(ctx)

	sum := types.RunSummary{
		ID:        c.newID(),
		Mode:      c.opts.Mode,
		StartedAt: c.clock.Now(),
	}
	budget := retry.NewBudget(c.opts.MaxEmptyPasses)

	var (
		controls []feed.Control
		given    int
	)

	st := stateLoggingIn
	for {
		if err := ctx.Err(); err != nil {
			return c.finish(ctx, sum, types.StopCancelled, err)
		}
		slog.DebugContext(ctx, "run state", "state", st, "pass", sum.Passes)

		switch st {
		case stateLoggingIn:
			if err := c.auth.Login(ctx, c.sess); err != nil {
				if ctx.Err() != nil {
					return c.finish(ctx, sum, types.StopCancelled, ctx.Err())
				}
				if !fault.IsFatal(err) {
					err = fault.NewFatal("login", err)
				}
				return c.finish(ctx, sum, types.StopFailed, err)
			}
			self, err := c.auth.ResolveSelf(ctx, c.sess)
			if err != nil {
				slog.WarnContext(ctx, "could not resolve own athlete id, treating no one as self", "err", err)
			}
			sum.SelfID = self
			st = stateLoading

		case stateLoading:
			if err := c.load(ctx); err != nil {
				return c.finish(ctx, sum, types.StopFailed, fault.NewFatal("load feed", err))
			}
			st = stateScanning

		case stateScanning:
			sum.Passes++
			var err error
			controls, err = c.scan(ctx, sum.Passes, sum.SelfID)
			if err != nil {
				slog.WarnContext(ctx, "feed scan failed", "pass", sum.Passes, "err", err)
			}
			st = stateActuating

		case stateActuating:
			given = 0
			for _, ctl := range controls {
				if ctx.Err() != nil {
					break
				}
				if !c.actuator.Activate(ctx, ctl) {
					continue
				}
				given++
				sum.KudosGiven++
				sum.Events = append(sum.Events, types.KudosEvent{
					OwnerID: ctl.OwnerID,
					Pass:    sum.Passes,
					GivenAt: c.clock.Now(),
				})
				slog.InfoContext(ctx, "kudos given", "owner", ctl.OwnerID, "pass", sum.Passes, "total", sum.KudosGiven)
			}
			st = stateDeciding

		case stateDeciding:
			reason, stop := c.decide(ctx, sum, given, budget)
			if c.decided != nil {
				c.decided(sum.Passes, given, budget.Remaining())
			}
			if stop {
				return c.finish(ctx, sum, reason, nil)
			}
			if err := c.advance(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				return c.finish(ctx, sum, types.StopFailed, fault.NewFatal("scroll feed", err))
			}
			st = stateScanning
		}
	}
}

func (c *Controller) decide(ctx context.Context, sum types.RunSummary, given int, budget *retry.Budget) (types.StopReason, bool) {
	if elapsed := c.clock.Now().Sub(sum.StartedAt); elapsed > c.opts.MaxDuration {
		slog.InfoContext(ctx, "max run duration reached", "elapsed", elapsed.Round(time.Second), "max", c.opts.MaxDuration)
		return types.StopBudgetExhausted, true
	}
	if c.opts.Mode == types.ModeSingle {
		return types.StopFeedExhausted, true
	}
	if given > 0 {
		return "", false
	}
	if budget.Spend() {
		return types.StopRetriesExhausted, true
	}
	slog.InfoContext(ctx, "pass gave no kudos", "pass", sum.Passes, "retries_left", budget.Remaining())
	return "", false
}

func (c *Controller) load(ctx context.Context) error {
	url := fmt.Sprintf("%s/dashboard?num_entries=%d", strings.TrimRight(c.opts.BaseURL, "/"), c.opts.EntriesPerPage)
	err := c.opts.LoadRetry.Do(ctx, "load dashboard", func(ctx context.Context) error {
		return c.sess.Navigate(ctx, url)
	})
	if err != nil {
		return err
	}

	if err := c.sess.Locate(feed.TermsButton).WithText(feed.AcceptTermsText).Click(ctx, session.ClickOptions{Timeout: termsTimeout}); err == nil {
		slog.InfoContext(ctx, "accepted updated terms")
	}

	// Nudge the lazy loader so the first pass sees the whole capped page.
	for i := 0; i < c.opts.WarmupScrolls; i++ {
		if err := c.sess.ScrollBy(ctx, 0, c.opts.ScrollStep); err != nil {
			return fmt.Errorf("failed to warm up feed: %w", err)
		}
		if err := c.clock.Sleep(ctx, warmupPause); err != nil {
			return err
		}
		if err := c.sess.ScrollBy(ctx, 0, -c.opts.ScrollStep); err != nil {
			return fmt.Errorf("failed to warm up feed: %w", err)
		}
	}
	return nil
}

func (c *Controller) scan(ctx context.Context, pass int, selfID string) ([]feed.Control, error) {
	controls, stats, err := c.scanner.Scan(ctx, c.sess.Locate(feed.WebFeedEntry), selfID)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "scanned feed",
		"pass", pass,
		"entries", stats.Entries,
		"eligible", stats.Eligible,
		"promotional", stats.Promotional,
		"self", stats.Self,
		"already_given", stats.Filled,
		"failed", stats.Failed,
	)
	if stats.Entries == 0 {
		c.saveSnapshot(ctx)
	}
	return controls, nil
}

func (c *Controller) saveSnapshot(ctx context.Context) {
	if c.snapshot == nil {
		return
	}
	html, err := c.sess.HTML(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to read page for snapshot", "err", err)
		return
	}
	path, err := c.snapshot(ctx, html)
	if err != nil {
		slog.WarnContext(ctx, "failed to save page snapshot", "err", err)
		return
	}
	slog.InfoContext(ctx, "no feed entries found, saved page snapshot", "path", path)
}

func (c *Controller) advance(ctx context.Context) error {
	if err := c.sess.ScrollBy(ctx, 0, c.opts.ScrollStep); err != nil {
		return err
	}
	return c.clock.Sleep(ctx, c.opts.ScrollPause)
}

func (c *Controller) finish(ctx context.Context, sum types.RunSummary, reason types.StopReason, err error) (types.RunSummary, error) {
	sum.FinishedAt = c.clock.Now()
	sum.StopReason = reason
	if err != nil {
		sum.Error = err.Error()
	}
	slog.InfoContext(ctx, "run finished",
		"run_id", sum.ID,
		"kudos_given", sum.KudosGiven,
		"stop_reason", sum.StopReason,
		"passes", sum.Passes,
		"elapsed", sum.Elapsed().Round(time.Millisecond),
	)
	return sum, err
}

func (c *Controller) release(ctx context.Context) {
	if err := c.sess.Close(); err != nil {
		slog.WarnContext(ctx, "failed to close browser session", "err", err)
	}
}
