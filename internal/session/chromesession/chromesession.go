// Package chromesession implements session.Session on a Chrome tab driven
// by chromedp.
package chromesession

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/kudos4me/internal/browser"
	"github.com/ibeckermayer/kudos4me/internal/session"
)

// Session is one Chrome tab.
type Session struct {
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var (
	_ session.Session   = (*Session)(nil)
	_ session.CookieJar = (*Session)(nil)
)

// New starts Chrome with the stealth options and opens a tab. The browser
// outlives ctx; Close shuts it down.
func New(ctx context.Context, headless bool) (*Session, error) {
	return NewWithOptions(ctx, browser.Options(headless)...)
}

// NewWithOptions starts Chrome with custom allocator options.
func NewWithOptions(ctx context.Context, opts ...chromedp.ExecAllocatorOption) (*Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{tab: tab, cancelTab: cancelTab, cancelAlloc: cancelAlloc}

	// The first Run launches the browser and ties its process to the
	// context it runs on, so it runs on the tab itself. Cancelling ctx
	// during startup tears the browser down.
	stop := context.AfterFunc(ctx, func() {
		cancelTab()
		cancelAlloc()
	})
	err := chromedp.Run(tab)
	if !stop() || err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	return s, nil
}

// run executes actions on the tab, aborting them when ctx is done without
// closing the tab.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *Session) Locate(selector string) session.Locator {
	return session.NewLocator(backend{s}, session.Path{}.Find(selector))
}

func (s *Session) ScrollBy(ctx context.Context, dx, dy int) error {
	return s.run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(%d, %d)`, dx, dy), nil))
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Cookies returns every cookie in the browser.
func (s *Session) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	return cookies, err
}

// SetCookies injects cookies before navigation.
func (s *Session) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

// Close shuts the browser down.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.tab)
	s.cancelTab()
	s.cancelAlloc()
	return err
}

type backend struct{ s *Session }

func (b backend) Count(ctx context.Context, p session.Path) (int, error) {
	var n int
	if err := b.s.run(ctx, chromedp.Evaluate(session.Expression(session.CountBody(p)), &n)); err != nil {
		return 0, fmt.Errorf("count %s: %w", p, err)
	}
	return n, nil
}

func (b backend) Attribute(ctx context.Context, p session.Path, name string) (string, bool, error) {
	var v *string
	if err := b.s.run(ctx, chromedp.Evaluate(session.Expression(session.AttributeBody(p, name)), &v)); err != nil {
		return "", false, fmt.Errorf("read %s of %s: %w", name, p, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (b backend) Click(ctx context.Context, p session.Path, opts session.ClickOptions) error {
	err := session.ClickWithin(ctx, opts.Timeout, func(ctx context.Context) (bool, error) {
		var clicked bool
		err := b.s.run(ctx, chromedp.Evaluate(session.Expression(session.ClickBody(p)), &clicked))
		return clicked, err
	})
	if err != nil {
		return fmt.Errorf("click %s: %w", p, err)
	}
	return nil
}
