package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPathIsImmutable(t *testing.T) {
	base := Path{}.Find(TestID("web-feed-entry"))
	a := base.Nth(0)
	b := base.Nth(1)

	require.Len(t, base, 1)
	require.Equal(t, 0, a[1].Index)
	require.Equal(t, 1, b[1].Index)
	require.Equal(t, `[data-testid="web-feed-entry"] >> nth(1)`, b.String())
}

func TestPathScript(t *testing.T) {
	p := Path{}.Find(TestID("web-feed-entry")).Nth(2).Find(".x")

	want := "let els = [document];\n" +
		"els = [...new Set(els.flatMap(e => Array.from(e.querySelectorAll(\"[data-testid=\\\"web-feed-entry\\\"]\"))))];\n" +
		"els = els.length > 2 ? [els[2]] : [];\n" +
		"els = [...new Set(els.flatMap(e => Array.from(e.querySelectorAll(\".x\"))))];\n"
	require.Equal(t, want, p.Script())
	require.Contains(t, AttributeBody(p, "href"), `getAttribute("href")`)
}

func TestPathTextStep(t *testing.T) {
	p := Path{}.Find("button").WithText(`Say "hi"`)

	require.Equal(t, `button >> text="Say \"hi\""`, p.String())
	require.Contains(t, p.Script(), "els = els.filter(e => e.textContent.trim() === \"Say \\\"hi\\\"\");\n")
}

type fakeBackend struct {
	paths []Path
}

func (f *fakeBackend) Count(ctx context.Context, p Path) (int, error) {
	f.paths = append(f.paths, p)
	return len(p), nil
}

func (f *fakeBackend) Attribute(ctx context.Context, p Path, name string) (string, bool, error) {
	f.paths = append(f.paths, p)
	return name, true, nil
}

func (f *fakeBackend) Click(ctx context.Context, p Path, opts ClickOptions) error {
	f.paths = append(f.paths, p)
	return nil
}

func TestLocatorBuildsPaths(t *testing.T) {
	b := &fakeBackend{}
	l := NewLocator(b, Path{}.Find("body"))

	n, err := l.ByTestID("entry-header").Nth(1).Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, `body >> [data-testid="entry-header"] >> nth(1)`, b.paths[0].String())
}

func TestClickWithinZeroTimeoutTriesOnce(t *testing.T) {
	calls := 0
	err := ClickWithin(context.Background(), 0, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.Equal(t, 1, calls)
}

func TestClickWithinRetriesUntilClicked(t *testing.T) {
	calls := 0
	err := ClickWithin(context.Background(), time.Second, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestClickWithinPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	err := ClickWithin(context.Background(), time.Second, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	require.ErrorIs(t, err, boom)
}
