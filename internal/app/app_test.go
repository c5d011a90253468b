package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/kudos4me/internal/clock"
	"github.com/ibeckermayer/kudos4me/internal/config"
	"github.com/ibeckermayer/kudos4me/internal/digest"
	"github.com/ibeckermayer/kudos4me/internal/fault"
	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/feed/feedtest"
	"github.com/ibeckermayer/kudos4me/internal/notifier"
	"github.com/ibeckermayer/kudos4me/internal/session"
	"github.com/ibeckermayer/kudos4me/internal/session/htmlsession"
	"github.com/ibeckermayer/kudos4me/internal/store"
	"github.com/ibeckermayer/kudos4me/internal/types"
)

const selfID = "1001"

var creds = config.Credentials{Email: "runner@example.com", Password: "hunter2"}

type recorder struct {
	mu       sync.Mutex
	subjects []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Send(ctx context.Context, d *digest.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subjects = append(r.subjects, d.Subject)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Run.Mode = config.ModeSingle
	cfg.Run.WarmupScrolls = 0
	cfg.Run.SnapshotEmptyFeed = false
	cfg.Login.ReuseCookies = false
	cfg.History.Enabled = false
	return cfg
}

// site serves a login form and a dashboard holding entries.
func site(entries ...string) *htmlsession.Page {
	p := htmlsession.New(map[string]string{
		"/login":     feedtest.LoginPage,
		"/dashboard": feedtest.Dashboard(selfID, entries...),
	})
	p.OnClick = func(p *htmlsession.Page, selector string) {
		if selector == feed.LoginSubmit {
			_ = p.SetHTML(feedtest.Dashboard(selfID))
		}
	}
	feedtest.GiveKudosOnClick(p)
	return p
}

func newTestApp(t *testing.T, factory SessionFactory) (*App, *recorder) {
	t.Helper()
	history, err := store.New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	rec := &recorder{}
	a, err := New(testConfig(), creds,
		WithSessionFactory(factory),
		WithNotifier(notifier.New(rec)),
		WithHistory(history),
		WithClock(clock.NewFake(time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, rec
}

func TestRunOnce(t *testing.T) {
	p := site(
		feedtest.Single(feedtest.Activity{OwnerID: "2001"}),
		feedtest.Single(feedtest.Activity{OwnerID: selfID}),
		feedtest.Single(feedtest.Activity{OwnerID: "2002"}),
	)
	a, rec := newTestApp(t, func(context.Context) (session.Session, error) { return p, nil })
	ctx := context.Background()

	sum, err := a.RunOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, sum.KudosGiven)
	require.Equal(t, types.StopFeedExhausted, sum.StopReason)
	require.Equal(t, selfID, sum.SelfID)
	require.True(t, p.Closed())

	require.Equal(t, []string{"Kudos run started", "Kudos run finished - 2 kudos given"}, rec.subjects)

	runs, err := a.History().RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, sum.ID, runs[0].ID)

	top, err := a.History().TopAthletes(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
}

func TestRunOnceBrowserFailure(t *testing.T) {
	a, rec := newTestApp(t, func(context.Context) (session.Session, error) {
		return nil, errors.New("chrome not found")
	})

	sum, err := a.RunOnce(context.Background())
	require.True(t, fault.IsFatal(err))
	require.Equal(t, types.StopFailed, sum.StopReason)
	require.Contains(t, sum.Error, "chrome not found")
	require.Equal(t, []string{"Kudos run started", "Kudos run failed - 0 kudos given"}, rec.subjects)

	runs, err := a.History().RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestRunOnceReportsCancelledRun(t *testing.T) {
	p := site(feedtest.Single(feedtest.Activity{OwnerID: "2001"}))
	a, rec := newTestApp(t, func(context.Context) (session.Session, error) { return p, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := a.RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, fault.IsFatal(err))
	require.Equal(t, types.StopCancelled, sum.StopReason)
	require.Len(t, rec.subjects, 2)

	runs, err := a.History().RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, types.StopCancelled, runs[0].StopReason)
}
