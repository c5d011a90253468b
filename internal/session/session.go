// Package session defines the narrow browser capabilities the kudos logic
// depends on. Concrete drivers live in the subpackages: chromesession
// (chromedp), rodsession (go-rod) and htmlsession (static HTML via goquery).
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
)

// ErrTimeout is returned by Click when the target did not become clickable
// within the allowed time.
var ErrTimeout = errors.New("element not clickable before timeout")

// Session is one browser tab owned by a single run.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Locate(selector string) Locator
	ScrollBy(ctx context.Context, dx, dy int) error
	// HTML returns the serialized document, used for debug snapshots.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Locator is a live, lazily resolved view of zero or more elements. Every
// call re-resolves against the current page.
type Locator interface {
	Count(ctx context.Context) (int, error)
	Nth(i int) Locator
	// Attribute reads name from the first match. ok is false when nothing
	// matches or the attribute is absent.
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	Click(ctx context.Context, opts ClickOptions) error
	Locate(selector string) Locator
	ByTestID(id string) Locator
	// WithText keeps the matches whose trimmed text content equals text.
	WithText(text string) Locator
}

// ClickOptions tunes Locator.Click. A zero Timeout tries exactly once.
type ClickOptions struct {
	Timeout time.Duration
}

// CookieJar is implemented by drivers that can export and import cookies.
type CookieJar interface {
	Cookies(ctx context.Context) ([]*network.Cookie, error)
	SetCookies(ctx context.Context, cookies []*network.Cookie) error
}

// TestID returns the CSS selector matching a data-testid attribute.
func TestID(id string) string {
	return fmt.Sprintf("[data-testid=%q]", id)
}
