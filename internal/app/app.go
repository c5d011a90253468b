// Package app wires configuration, the browser session, login, the run
// controller and the reporting sinks into one kudos run.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/kudos4me/internal/auth"
	"github.com/ibeckermayer/kudos4me/internal/browser"
	"github.com/ibeckermayer/kudos4me/internal/clock"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/digest"
	"github.com/ibeckermayer/kudos4me/internal/fault"
	"github.com/ibeckermayer/kudos4me/internal/metrics"
	"github.com/ibeckermayer/kudos4me/internal/notifier"
	"github.com/ibeckermayer/kudos4me/internal/retry"
	"github.com/ibeckermayer/kudos4me/internal/run"
	"github.com/ibeckermayer/kudos4me/internal/session"
	"github.com/ibeckermayer/kudos4me/internal/session/chromesession"
	"github.com/ibeckermayer/kudos4me/internal/session/rodsession"
	"github.com/ibeckermayer/kudos4me/internal/store"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

const (
	// reportTimeout bounds notification, history and metrics work after a
	// run, which still happens when the run was cancelled.
	reportTimeout = 30 * time.Second
	// digestOwners caps the athletes listed in the end-of-run message.
	digestOwners = 10
)

// SessionFactory opens a fresh browser session for one run.
type SessionFactory func(ctx context.Context) (session.Session, error)

// App holds the application state.
type App struct {
	mu sync.Mutex // one run at a time

	config     *config.Config
	auth       *auth.Manager
	digest     *digest.Builder
	notifier   *notifier.Notifier
	metrics    *metrics.Metrics
	history    *store.Store // nil when disabled
	snapshots  *store.Snapshots
	clock      clock.Clock
	newSession SessionFactory
}

// Option customizes an App.
type Option func(*App)

// WithSessionFactory replaces the configured browser driver.
func WithSessionFactory(f SessionFactory) Option {
	return func(a *App) { a.newSession = f }
}

// WithNotifier replaces the channels built from config.
func WithNotifier(n *notifier.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithHistory records runs in s instead of the default database.
func WithHistory(s *store.Store) Option {
	return func(a *App) { a.history = s }
}

// WithSnapshots saves empty-feed pages to s.
func WithSnapshots(s *store.Snapshots) Option {
	return func(a *App) { a.snapshots = s }
}

// WithClock replaces the wall clock.
func WithClock(clk clock.Clock) Option {
	return func(a *App) { a.clock = clk }
}

// New creates an App from cfg. Parts not supplied through options are
// built from cfg: the browser driver, notification channels, the history
// database and the cookie store.
func New(cfg *config.Config, creds config.Credentials, options ...Option) (*App, error) {
	a := &App{
		config:   cfg,
		notifier: notifier.NewFromConfig(cfg.Notify),
		metrics:  metrics.New(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job),
		clock:    clock.Real(),
	}
	for _, o := range options {
		o(a)
	}
	if a.newSession == nil {
		a.newSession = DriverSessionFactory(cfg.Browser)
	}

	b, err := digest.New(digestOwners, cfg.Browser.BaseURL)
	if err != nil {
		return nil, err
	}
	a.digest = b

	if a.history == nil && cfg.History.Enabled {
		path, err := store.DefaultPath()
		if err != nil {
			return nil, err
		}
		if a.history, err = store.New(path); err != nil {
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
	}

	if a.snapshots == nil && cfg.Run.SnapshotEmptyFeed {
		dir, err := store.DefaultSnapshotDir()
		if err != nil {
			return nil, err
		}
		a.snapshots = store.NewSnapshots(dir)
	}

	var cookies *auth.CookieStore
	if cfg.Login.ReuseCookies {
		path, err := auth.DefaultCookieStorePath()
		if err != nil {
			return nil, err
		}
		cookies = auth.NewCookieStore(path)
	}
	a.auth = auth.NewManager(creds, auth.Options{
		BaseURL:        cfg.Browser.BaseURL,
		Retry:          retry.Policy{Attempts: cfg.Login.Attempts, Backoff: cfg.Login.Backoff()},
		FormTimeout:    cfg.Login.FormTimeout(),
		ConfirmTimeout: cfg.Login.ConfirmTimeout(),
		Clock:          a.clock,
		Cookies:        cookies,
	})

	return a, nil
}

// DriverSessionFactory opens Chrome with the driver named in cfg.
func DriverSessionFactory(cfg config.BrowserConfig) SessionFactory {
	return func(ctx context.Context) (session.Session, error) {
		slog.DebugContext(ctx, "starting browser", "driver", cfg.Driver, "headless", cfg.Headless)
		switch cfg.Driver {
		case config.DriverRod:
			return rodsession.NewWithLauncher(ctx, browser.Launcher(cfg.Headless))
		default:
			return chromesession.NewWithOptions(ctx, browser.Options(cfg.Headless)...)
		}
	}
}

// Close releases the history database.
func (a *App) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// History returns the run history store, or nil when disabled.
func (a *App) History() *store.Store { return a.history }

// Logout forgets the saved browser session.
func (a *App) Logout() error {
	slog.Info("clearing stored session cookies")
	return a.auth.Logout()
}

// RunOnce performs a full run: announce, log in, give kudos, then report
// the outcome. The error is non-nil when the run could not proceed;
// fault.IsFatal reports whether the process should exit with failure.
func (a *App) RunOnce(ctx context.Context) (types.RunSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mode := types.Mode(a.config.Run.Mode)
	if a.notifier.Enabled() {
		_ = a.notifier.Notify(ctx, a.digest.Started(mode, a.clock.Now()))
	}

	var (
		sum types.RunSummary
		err error
	)
	sess, serr := a.newSession(ctx)
	if serr != nil {
		now := a.clock.Now()
		err = fault.NewFatal("start browser", serr)
		sum = types.RunSummary{
			ID:         uuid.NewString(),
			Mode:       mode,
			StartedAt:  now,
			FinishedAt: now,
			StopReason: types.StopFailed,
			Error:      err.Error(),
		}
		slog.ErrorContext(ctx, "failed to start browser", "driver", a.config.Browser.Driver, "err", serr)
	} else {
		sum, err = a.controller(sess).Run(ctx)
	}

	a.report(ctx, sum)
	return sum, err
}

func (a *App) controller(sess session.Session) *run.Controller {
	rc := a.config.Run
	opts := run.Options{
		Mode:           types.Mode(rc.Mode),
		BaseURL:        a.config.Browser.BaseURL,
		EntriesPerPage: rc.PageSize(),
		MaxDuration:    rc.MaxDuration(),
		MaxEmptyPasses: rc.MaxEmptyScrollRetries,
		ScrollStep:     rc.ScrollStepPX,
		ScrollPause:    rc.ScrollPause(),
		WarmupScrolls:  rc.WarmupScrolls,
		Cooldown:       rc.Cooldown(),
		ClickTimeout:   rc.ClickTimeout(),
		LoadRetry:      retry.Policy{Attempts: a.config.Login.Attempts, Backoff: a.config.Login.Backoff()},
	}

	options := []run.Option{run.WithClock(a.clock)}
	if a.snapshots != nil {
		options = append(options, run.WithSnapshots(a.snapshots.Save))
	}
	return run.New(sess, a.auth, opts, options...)
}

// report sends the end-of-run message, records history and pushes metrics.
// Failures are logged and do not change the run outcome.
func (a *App) report(ctx context.Context, sum types.RunSummary) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if a.notifier.Enabled() {
		d, err := a.digest.Finished(sum)
		if err != nil {
			slog.WarnContext(ctx, "failed to build run report", "err", err)
		} else {
			_ = a.notifier.Notify(ctx, d)
		}
	}

	if a.history != nil && sum.ID != "" {
		if err := a.history.SaveRun(ctx, sum); err != nil {
			slog.WarnContext(ctx, "failed to save run history", "run_id", sum.ID, "err", err)
		}
	}

	a.metrics.Observe(sum)
	if err := a.metrics.Push(ctx); err != nil {
		slog.WarnContext(ctx, "failed to push metrics", "err", err)
	}
}
