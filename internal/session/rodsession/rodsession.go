// Package rodsession implements session.Session on a Chrome page driven by
// go-rod.
package rodsession

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ibeckermayer/kudos4me/internal/browser"
	"github.com/ibeckermayer/kudos4me/internal/session"
)

// Session is one Chrome page.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

var (
	_ session.Session   = (*Session)(nil)
	_ session.CookieJar = (*Session)(nil)
)

// New launches Chrome with the stealth flags and opens a blank page.
func New(ctx context.Context, headless bool) (*Session, error) {
	return NewWithLauncher(ctx, browser.Launcher(headless))
}

// NewWithLauncher launches Chrome with l. ctx bounds the startup only.
func NewWithLauncher(ctx context.Context, l *launcher.Launcher) (*Session, error) {
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := b.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &Session{launcher: l, browser: b, page: page.Context(context.Background())}, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}

func (s *Session) Click(ctx context.Context, selector string) error {
	el, err := s.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %w", err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *Session) Locate(selector string) session.Locator {
	return session.NewLocator(backend{s}, session.Path{}.Find(selector))
}

func (s *Session) ScrollBy(ctx context.Context, dx, dy int) error {
	_, err := s.page.Context(ctx).Eval(fmt.Sprintf(`() => window.scrollBy(%d, %d)`, dx, dy))
	return err
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Cookies returns the cookies visible to the current page.
func (s *Session) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	cookies, err := s.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, err
	}
	out := make([]*network.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &network.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			Session:  c.Session,
			SameSite: network.CookieSameSite(c.SameSite),
		})
	}
	return out, nil
}

// SetCookies injects cookies before navigation.
func (s *Session) SetCookies(ctx context.Context, cookies []*network.Cookie) error {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  proto.TimeSinceEpoch(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		})
	}
	return s.page.Context(ctx).SetCookies(params)
}

// Close shuts the browser down.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	return err
}

type backend struct{ s *Session }

func (b backend) eval(ctx context.Context, body string) (*proto.RuntimeRemoteObject, error) {
	return b.s.page.Context(ctx).Eval(session.Function(body))
}

func (b backend) Count(ctx context.Context, p session.Path) (int, error) {
	res, err := b.eval(ctx, session.CountBody(p))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", p, err)
	}
	return res.Value.Int(), nil
}

func (b backend) Attribute(ctx context.Context, p session.Path, name string) (string, bool, error) {
	res, err := b.eval(ctx, session.AttributeBody(p, name))
	if err != nil {
		return "", false, fmt.Errorf("read %s of %s: %w", name, p, err)
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

func (b backend) Click(ctx context.Context, p session.Path, opts session.ClickOptions) error {
	err := session.ClickWithin(ctx, opts.Timeout, func(ctx context.Context) (bool, error) {
		res, err := b.eval(ctx, session.ClickBody(p))
		if err != nil {
			return false, err
		}
		return res.Value.Bool(), nil
	})
	if err != nil {
		return fmt.Errorf("click %s: %w", p, err)
	}
	return nil
}
