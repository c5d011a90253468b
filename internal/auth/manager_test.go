package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/kudos4me/internal/clock"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/fault"
	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/feed/feedtest"
	"github.com/ibeckermayer/kudos4me/internal/retry"
	"github.com/ibeckermayer/kudos4me/internal/session/htmlsession"
)

var creds = config.Credentials{Email: "runner@example.com", Password: "hunter2"}

func loginSite(selfID string) *htmlsession.Page {
	p := htmlsession.New(map[string]string{
		"/login":     feedtest.LoginPage,
		"/dashboard": feedtest.Dashboard(selfID),
	})
	p.OnClick = func(p *htmlsession.Page, selector string) {
		if selector == feed.LoginSubmit {
			_ = p.SetHTML(feedtest.Dashboard(selfID))
		}
	}
	return p
}

func newManager(clk clock.Clock, store *CookieStore) *Manager {
	return NewManager(creds, Options{
		BaseURL:        "https://www.strava.com/",
		Retry:          retry.Policy{Attempts: 3, Backoff: time.Second},
		ConfirmTimeout: 3 * time.Second,
		PollInterval:   time.Second,
		Clock:          clk,
		Cookies:        store,
	})
}

func TestLoginAndResolveSelf(t *testing.T) {
	p := loginSite("1001")
	m := newManager(clock.NewFake(time.Unix(0, 0)), nil)
	ctx := context.Background()

	require.NoError(t, m.Login(ctx, p))
	require.Equal(t, "https://www.strava.com/login", p.URL())
	require.Equal(t, creds.Email, p.Fields[feed.LoginEmail])
	require.Equal(t, creds.Password, p.Fields[feed.LoginPassword])
	require.Equal(t, []string{feed.LoginSubmit}, p.Clicks)

	self, err := m.ResolveSelf(ctx, p)
	require.NoError(t, err)
	require.Equal(t, "1001", self)
}

// sleepHook runs a callback on every fake sleep.
type sleepHook struct {
	*clock.Fake
	onSleep func()
}

func (h sleepHook) Sleep(ctx context.Context, d time.Duration) error {
	h.onSleep()
	return h.Fake.Sleep(ctx, d)
}

func TestLoginPollsUntilConfirmed(t *testing.T) {
	p := htmlsession.New(map[string]string{"/login": feedtest.LoginPage})
	fake := clock.NewFake(time.Unix(0, 0))
	clk := sleepHook{Fake: fake, onSleep: func() {
		// The redirect to the dashboard lands during the first poll interval.
		_ = p.SetHTML(feedtest.Dashboard("1001"))
	}}

	require.NoError(t, newManager(clk, nil).Login(context.Background(), p))
	require.Equal(t, []time.Duration{time.Second}, fake.Sleeps())
}

func TestLoginTimesOutAndIsFatal(t *testing.T) {
	p := htmlsession.New(map[string]string{"/login": feedtest.LoginPage})
	clk := clock.NewFake(time.Unix(0, 0))
	m := newManager(clk, nil)

	err := m.Login(context.Background(), p)
	require.Error(t, err)
	require.True(t, fault.IsFatal(err))
	require.ErrorContains(t, err, "login not confirmed within 3s")

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Len(t, p.Clicks, 3, "one submit per attempt")
}

func TestLoginRejected(t *testing.T) {
	p := htmlsession.New(map[string]string{"/login": feedtest.LoginPage})
	p.OnClick = func(p *htmlsession.Page, selector string) {
		_ = p.SetHTML(`<html><body><div class="alert-message">The username or password did not match.</div></body></html>`)
	}
	clk := clock.NewFake(time.Unix(0, 0))
	m := newManager(clk, nil)

	err := m.Login(context.Background(), p)
	require.True(t, fault.IsFatal(err))
	require.ErrorIs(t, err, ErrLoginRejected)
	require.Equal(t, []time.Duration{time.Second, time.Second}, clk.Sleeps(), "only the retry backoff, no confirmation polling")
}

func TestLoginPageUnreachable(t *testing.T) {
	p := htmlsession.New(nil)
	err := newManager(clock.NewFake(time.Unix(0, 0)), nil).Login(context.Background(), p)
	require.True(t, fault.IsFatal(err))
	require.ErrorContains(t, err, "failed to navigate to login page")
}

// stuckForm never finds the form fields, like a login page that changed.
type stuckForm struct {
	*htmlsession.Page
}

func (stuckForm) Fill(ctx context.Context, selector, value string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLoginFormStepsAreBounded(t *testing.T) {
	p := stuckForm{Page: htmlsession.New(map[string]string{"/login": feedtest.LoginPage})}
	m := NewManager(creds, Options{
		BaseURL:     "https://www.strava.com",
		Retry:       retry.Policy{Attempts: 3, Backoff: time.Second},
		FormTimeout: 20 * time.Millisecond,
		Clock:       clock.NewFake(time.Unix(0, 0)),
	})

	start := time.Now()
	err := m.Login(context.Background(), p)
	require.Less(t, time.Since(start), 5*time.Second)

	require.True(t, fault.IsFatal(err))
	require.ErrorContains(t, err, "failed to fill email")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)
	require.Empty(t, p.Clicks)
}

func TestLoginCancelled(t *testing.T) {
	p := loginSite("1001")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newManager(clock.NewFake(time.Unix(0, 0)), nil).Login(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, fault.IsFatal(err))
}

func TestResolveSelfWithoutUserMenuLink(t *testing.T) {
	p, err := htmlsession.FromHTML(feedtest.Dashboard(""))
	require.NoError(t, err)

	_, err = newManager(clock.Real(), nil).ResolveSelf(context.Background(), p)
	require.ErrorContains(t, err, "user menu link not found")

	require.NoError(t, p.SetHTML(`<div class="user-menu"><a href="/settings">Me</a></div>`))
	_, err = newManager(clock.Real(), nil).ResolveSelf(context.Background(), p)
	require.ErrorContains(t, err, "no athlete id")
}

// jarPage adds cookie import and export to an htmlsession page.
type jarPage struct {
	*htmlsession.Page
	jar []*network.Cookie
}

func (j *jarPage) Cookies(ctx context.Context) ([]*network.Cookie, error) { return j.jar, nil }

func (j *jarPage) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	j.jar = append(j.jar, cookies...)
	return nil
}

func sessionCookie(value string) *network.Cookie {
	return &network.Cookie{Name: SessionCookie, Value: value, Domain: ".strava.com", Path: "/"}
}

func TestLoginSavesAndReusesCookies(t *testing.T) {
	store := NewCookieStore(filepath.Join(t.TempDir(), "cookies.json"))
	clk := clock.NewFake(time.Unix(0, 0))
	ctx := context.Background()

	first := &jarPage{Page: loginSite("1001"), jar: []*network.Cookie{sessionCookie("abc")}}
	require.NoError(t, newManager(clk, store).Login(ctx, first))
	require.True(t, store.IsValid())

	second := &jarPage{Page: loginSite("1001")}
	require.NoError(t, newManager(clk, store).Login(ctx, second))
	require.Empty(t, second.Clicks, "login form skipped")
	require.Equal(t, "https://www.strava.com/dashboard", second.URL())
	require.Len(t, second.jar, 1)
	require.Equal(t, "abc", second.jar[0].Value)
}

func TestStaleCookiesFallBackToForm(t *testing.T) {
	store := NewCookieStore(filepath.Join(t.TempDir(), "cookies.json"))
	require.NoError(t, store.Save([]*network.Cookie{sessionCookie("old")}))

	// The dashboard served with the stale cookie is logged out.
	p := htmlsession.New(map[string]string{
		"/login":     feedtest.LoginPage,
		"/dashboard": feedtest.LoginPage,
	})
	p.OnClick = func(p *htmlsession.Page, selector string) {
		_ = p.SetHTML(feedtest.Dashboard("1001"))
	}
	page := &jarPage{Page: p, jar: nil}

	require.NoError(t, newManager(clock.NewFake(time.Unix(0, 0)), store).Login(context.Background(), page))
	require.Equal(t, []string{feed.LoginSubmit}, p.Clicks)
}
