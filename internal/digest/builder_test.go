package digest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/kudos4me/internal/types"
)

func TestFinishedReport(t *testing.T) {
	b, err := New(2, "https://www.strava.com")
	require.NoError(t, err)

	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)
	d, err := b.Finished(types.RunSummary{
		StartedAt:  start,
		FinishedAt: start.Add(95 * time.Second),
		Passes:     4,
		KudosGiven: 5,
		StopReason: types.StopRetriesExhausted,
		Events: []types.KudosEvent{
			{OwnerID: "2"}, {OwnerID: "1"}, {OwnerID: "2"}, {OwnerID: "3"}, {OwnerID: ""},
		},
	})
	require.NoError(t, err)

	require.Equal(t, "Kudos run finished - 5 kudos given", d.Subject)
	require.Contains(t, d.PlainBody, "Kudos given: 5")
	require.Contains(t, d.PlainBody, "Stopped: retries exhausted after 1m35s")
	require.NotContains(t, d.PlainBody, "Error")

	require.Contains(t, d.HTMLBody, `href="https://www.strava.com/athletes/2"`)
	require.Contains(t, d.HTMLBody, `href="https://www.strava.com/athletes/1"`)
	require.NotContains(t, d.HTMLBody, "/athletes/3")
	require.Contains(t, d.HTMLBody, "and 1 more")
	require.Equal(t, start.Add(95*time.Second), d.CreatedAt)
}

func TestFailedReportEscapesError(t *testing.T) {
	b, err := New(10, "https://www.strava.com")
	require.NoError(t, err)

	d, err := b.Finished(types.RunSummary{StopReason: types.StopFailed, Error: "login: <timeout>"})
	require.NoError(t, err)
	require.Equal(t, "Kudos run failed - 0 kudos given", d.Subject)
	require.Contains(t, d.PlainBody, "Error: login: <timeout>")
	require.Contains(t, d.HTMLBody, "login: &lt;timeout&gt;")
}

func TestCountOwnersOrder(t *testing.T) {
	owners := countOwners([]types.KudosEvent{{OwnerID: "b"}, {OwnerID: "a"}, {OwnerID: "c"}, {OwnerID: "c"}})
	require.Equal(t, []OwnerData{{ID: "c", Kudos: 2}, {ID: "a", Kudos: 1}, {ID: "b", Kudos: 1}}, owners)
}

func TestStarted(t *testing.T) {
	b, err := New(10, "https://www.strava.com")
	require.NoError(t, err)

	d := b.Started(types.ModeScroll, time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC))
	require.Equal(t, "Kudos run started (scroll mode) at 07:30", d.PlainBody)
}
