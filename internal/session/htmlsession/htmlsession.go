// Package htmlsession implements session.Session over static HTML documents
// parsed with goquery. It backs the scanner dry-run command and the tests.
package htmlsession

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/kudos4me/internal/session"
)

// Page is an in-memory tab. Navigate swaps the document for the route whose
// path matches the URL.
type Page struct {
	routes map[string]string
	doc    *goquery.Document
	url    string
	closed bool

	// Fields records every Fill by selector.
	Fields map[string]string
	// Clicks records every Session.Click selector and every Locator.Click path.
	Clicks []string
	// Scrolls counts ScrollBy calls.
	Scrolls int

	// OnClick runs after a page-level Click.
	OnClick func(p *Page, selector string)
	// OnElementClick runs on the element hit by a Locator.Click.
	OnElementClick func(p *Page, el *goquery.Selection)
	// OnScroll runs after every ScrollBy.
	OnScroll func(p *Page, dx, dy int)
}

var _ session.Session = (*Page)(nil)

// New returns a Page serving routes, keyed by URL path ("/login").
func New(routes map[string]string) *Page {
	return &Page{routes: routes, Fields: map[string]string{}}
}

// FromHTML returns a Page already showing html.
func FromHTML(html string) (*Page, error) {
	p := New(nil)
	if err := p.SetHTML(html); err != nil {
		return nil, err
	}
	return p, nil
}

// SetHTML replaces the current document.
func (p *Page) SetHTML(html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}
	p.doc = doc
	return nil
}

// Append parses html and appends it to every element matching selector,
// the way a lazily loaded feed grows on scroll.
func (p *Page) Append(selector, html string) {
	if p.doc != nil {
		p.doc.Find(selector).AppendHtml(html)
	}
}

// URL returns the last navigated URL.
func (p *Page) URL() string { return p.url }

// Closed reports whether Close was called.
func (p *Page) Closed() bool { return p.closed }

// Document exposes the current document for assertions.
func (p *Page) Document() *goquery.Document { return p.doc }

func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	html, ok := p.routes[u.Path]
	if !ok {
		return fmt.Errorf("no route for %s", u.Path)
	}
	if err := p.SetHTML(html); err != nil {
		return err
	}
	p.url = rawURL
	return nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	if p.find(selector).Length() == 0 {
		return fmt.Errorf("no element matches %s", selector)
	}
	p.Fields[selector] = value
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if p.find(selector).Length() == 0 {
		return fmt.Errorf("no element matches %s", selector)
	}
	p.Clicks = append(p.Clicks, selector)
	if p.OnClick != nil {
		p.OnClick(p, selector)
	}
	return nil
}

func (p *Page) Locate(selector string) session.Locator {
	return session.NewLocator(backend{p}, session.Path{}.Find(selector))
}

func (p *Page) ScrollBy(ctx context.Context, dx, dy int) error {
	p.Scrolls++
	if p.OnScroll != nil {
		p.OnScroll(p, dx, dy)
	}
	return nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", nil
	}
	return p.doc.Html()
}

func (p *Page) Close() error {
	p.closed = true
	return nil
}

func (p *Page) find(selector string) *goquery.Selection {
	return p.resolve(session.Path{}.Find(selector))
}

func (p *Page) resolve(path session.Path) *goquery.Selection {
	if p.doc == nil {
		return &goquery.Selection{}
	}
	sel := p.doc.Selection
	for _, step := range path {
		switch {
		case step.IsIndex:
			sel = sel.Eq(step.Index)
		case step.IsText:
			text := step.Text
			sel = sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
				return strings.TrimSpace(s.Text()) == text
			})
		default:
			sel = sel.Find(step.Selector)
		}
	}
	return sel
}

type backend struct{ p *Page }

func (b backend) Count(ctx context.Context, path session.Path) (int, error) {
	return b.p.resolve(path).Length(), nil
}

func (b backend) Attribute(ctx context.Context, path session.Path, name string) (string, bool, error) {
	v, ok := b.p.resolve(path).First().Attr(name)
	return v, ok, nil
}

func (b backend) Click(ctx context.Context, path session.Path, opts session.ClickOptions) error {
	sel := b.p.resolve(path)
	if sel.Length() == 0 {
		return fmt.Errorf("%s: %w", path, session.ErrTimeout)
	}
	b.p.Clicks = append(b.p.Clicks, path.String())
	if b.p.OnElementClick != nil {
		b.p.OnElementClick(b.p, sel.First())
	}
	return nil
}
