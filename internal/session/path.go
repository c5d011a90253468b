package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Step is one hop of a locator chain: a CSS selector applied to every
// element matched so far, an index picking one of them, or a text filter
// keeping those whose trimmed text equals Text.
type Step struct {
	Selector string
	Index    int
	IsIndex  bool
	Text     string
	IsText   bool
}

// Path is an ordered chain of steps starting from the document.
type Path []Step

// Find returns p extended with a selector step.
func (p Path) Find(selector string) Path {
	return append(p[:len(p):len(p)], Step{Selector: selector})
}

// Nth returns p extended with an index step.
func (p Path) Nth(i int) Path {
	return append(p[:len(p):len(p)], Step{Index: i, IsIndex: true})
}

// WithText returns p extended with a text filter step.
func (p Path) WithText(text string) Path {
	return append(p[:len(p):len(p)], Step{Text: text, IsText: true})
}

func (p Path) String() string {
	parts := make([]string, 0, len(p))
	for _, s := range p {
		switch {
		case s.IsIndex:
			parts = append(parts, fmt.Sprintf("nth(%d)", s.Index))
		case s.IsText:
			parts = append(parts, fmt.Sprintf("text=%q", s.Text))
		default:
			parts = append(parts, s.Selector)
		}
	}
	return strings.Join(parts, " >> ")
}

// Script returns JavaScript statements that leave the resolved elements, in
// document order and without duplicates, in a variable named els. The
// browser drivers append their own trailing statement.
func (p Path) Script() string {
	var b strings.Builder
	b.WriteString("let els = [document];\n")
	for _, s := range p {
		if s.IsIndex {
			fmt.Fprintf(&b, "els = els.length > %d ? [els[%d]] : [];\n", s.Index, s.Index)
			continue
		}
		if s.IsText {
			text, _ := json.Marshal(s.Text)
			fmt.Fprintf(&b, "els = els.filter(e => e.textContent.trim() === %s);\n", text)
			continue
		}
		sel, _ := json.Marshal(s.Selector)
		fmt.Fprintf(&b, "els = [...new Set(els.flatMap(e => Array.from(e.querySelectorAll(%s))))];\n", sel)
	}
	return b.String()
}

// Backend resolves paths against a concrete page. Drivers implement it and
// wrap it with NewLocator.
type Backend interface {
	Count(ctx context.Context, p Path) (int, error)
	Attribute(ctx context.Context, p Path, name string) (string, bool, error)
	Click(ctx context.Context, p Path, opts ClickOptions) error
}

type locator struct {
	backend Backend
	path    Path
}

// NewLocator returns a Locator for p backed by b.
func NewLocator(b Backend, p Path) Locator {
	return locator{backend: b, path: p}
}

func (l locator) Count(ctx context.Context) (int, error) {
	return l.backend.Count(ctx, l.path)
}

func (l locator) Nth(i int) Locator {
	return locator{backend: l.backend, path: l.path.Nth(i)}
}

func (l locator) Attribute(ctx context.Context, name string) (string, bool, error) {
	return l.backend.Attribute(ctx, l.path, name)
}

func (l locator) Click(ctx context.Context, opts ClickOptions) error {
	return l.backend.Click(ctx, l.path, opts)
}

func (l locator) Locate(selector string) Locator {
	return locator{backend: l.backend, path: l.path.Find(selector)}
}

func (l locator) WithText(text string) Locator {
	return locator{backend: l.backend, path: l.path.WithText(text)}
}

func (l locator) ByTestID(id string) Locator {
	return l.Locate(TestID(id))
}

func (l locator) String() string { return l.path.String() }
