// Package auth logs a browser session into Strava with email and password
// and identifies the logged-in athlete.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ibeckermayer/kudos4me/internal/clock"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/fault"
	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/retry"
	"github.com/ibeckermayer/kudos4me/internal/session"
)

// ErrLoginRejected is returned when Strava answers the login form with an
// error message, typically wrong credentials.
var ErrLoginRejected = errors.New("login rejected")

const (
	defaultPollInterval = time.Second
	defaultFormTimeout  = 30 * time.Second
)

// Options configures a Manager.
type Options struct {
	BaseURL string
	// Retry bounds login attempts. Its Clock is replaced by Options.Clock.
	Retry retry.Policy
	// FormTimeout bounds loading and filling the login form on each attempt.
	FormTimeout time.Duration
	// ConfirmTimeout bounds the wait for the logged-in page after submitting.
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Clock          clock.Clock
	// Cookies, when set, lets a later run skip the login form.
	Cookies *CookieStore
}

// Manager handles Strava authentication
type Manager struct {
	creds config.Credentials
	opts  Options
}

// NewManager creates a new auth manager
func NewManager(creds config.Credentials, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.FormTimeout <= 0 {
		opts.FormTimeout = defaultFormTimeout
	}
	opts.Retry.Clock = opts.Clock
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Manager{creds: creds, opts: opts}
}

// Login authenticates sess. It returns a fatal fault once every attempt has
// failed.
func (m *Manager) Login(ctx context.Context, sess session.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.resume(ctx, sess) {
		slog.InfoContext(ctx, "reused saved Strava session")
		return nil
	}

	err := m.opts.Retry.Do(ctx, "login", func(ctx context.Context) error {
		return m.submit(ctx, sess)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fault.NewFatal("login", err)
	}
	slog.InfoContext(ctx, "logged in", "email", m.creds.Email)

	m.saveCookies(ctx, sess)
	return nil
}

// ResolveSelf reads the logged-in athlete id from the user menu.
func (m *Manager) ResolveSelf(ctx context.Context, sess session.Session) (string, error) {
	href, ok, err := sess.Locate(feed.UserMenuLink).Attribute(ctx, "href")
	if err != nil {
		return "", fmt.Errorf("failed to read user menu: %w", err)
	}
	if !ok {
		return "", errors.New("user menu link not found")
	}
	id, ok := feed.ParseAthleteID(href)
	if !ok {
		return "", fmt.Errorf("no athlete id in user menu link %q", href)
	}
	slog.DebugContext(ctx, "resolved own athlete id", "id", id)
	return id, nil
}

func (m *Manager) submit(ctx context.Context, sess session.Session) error {
	if err := m.fillForm(ctx, sess); err != nil {
		return err
	}
	return m.waitForLogin(ctx, sess)
}

// fillForm loads the login page and submits the credentials within
// FormTimeout, so a page missing the form fails the attempt.
func (m *Manager) fillForm(ctx context.Context, sess session.Session) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.FormTimeout)
	defer cancel()

	if err := sess.Navigate(ctx, m.opts.BaseURL+"/login"); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}
	if err := sess.Fill(ctx, feed.LoginEmail, m.creds.Email); err != nil {
		return fmt.Errorf("failed to fill email: %w", err)
	}
	if err := sess.Fill(ctx, feed.LoginPassword, m.creds.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := sess.Click(ctx, feed.LoginSubmit); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}
	return nil
}

// waitForLogin polls until the logged-in page shows up
func (m *Manager) waitForLogin(ctx context.Context, sess session.Session) error {
	deadline := m.opts.Clock.Now().Add(m.opts.ConfirmTimeout)
	for {
		if m.loggedIn(ctx, sess) {
			return nil
		}
		if n, err := sess.Locate(feed.LoginError).Count(ctx); err == nil && n > 0 {
			return ErrLoginRejected
		}
		if !m.opts.Clock.Now().Before(deadline) {
			return fmt.Errorf("login not confirmed within %s", m.opts.ConfirmTimeout)
		}
		if err := m.opts.Clock.Sleep(ctx, m.opts.PollInterval); err != nil {
			return err
		}
	}
}

func (m *Manager) loggedIn(ctx context.Context, sess session.Session) bool {
	n, err := sess.Locate(feed.UserMenu).Count(ctx)
	return err == nil && n > 0
}

// resume injects saved cookies and checks whether the dashboard loads
// logged in.
func (m *Manager) resume(ctx context.Context, sess session.Session) bool {
	jar, ok := sess.(session.CookieJar)
	if !ok || m.opts.Cookies == nil || !m.opts.Cookies.IsValid() {
		return false
	}
	stored, err := m.opts.Cookies.Load()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, m.opts.FormTimeout)
	defer cancel()

	if err := jar.SetCookies(ctx, stored.Cookies); err != nil {
		slog.WarnContext(ctx, "failed to restore saved cookies", "err", err)
		return false
	}
	if err := sess.Navigate(ctx, m.opts.BaseURL+"/dashboard"); err != nil {
		slog.WarnContext(ctx, "failed to load dashboard with saved cookies", "err", err)
		return false
	}
	if !m.loggedIn(ctx, sess) {
		slog.InfoContext(ctx, "saved session expired, logging in again")
		if err := m.opts.Cookies.Clear(); err != nil {
			slog.WarnContext(ctx, "failed to clear stale cookies", "err", err)
		}
		return false
	}
	return true
}

func (m *Manager) saveCookies(ctx context.Context, sess session.Session) {
	jar, ok := sess.(session.CookieJar)
	if !ok || m.opts.Cookies == nil {
		return
	}
	cookies, err := jar.Cookies(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to extract cookies", "err", err)
		return
	}
	if err := m.opts.Cookies.Save(cookies); err != nil {
		slog.WarnContext(ctx, "failed to save cookies", "err", err)
	}
}

// Logout clears stored cookies
func (m *Manager) Logout() error {
	if m.opts.Cookies == nil {
		return nil
	}
	return m.opts.Cookies.Clear()
}
