package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/kudos4me/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func summary(id string, start time.Time, owners ...string) types.RunSummary {
	sum := types.RunSummary{
		ID:         id,
		Mode:       types.ModeScroll,
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		SelfID:     "1001",
		Passes:     2,
		KudosGiven: len(owners),
		StopReason: types.StopRetriesExhausted,
	}
	for _, o := range owners {
		sum.Events = append(sum.Events, types.KudosEvent{OwnerID: o, Pass: 1, GivenAt: start})
	}
	return sum
}

func TestSaveAndListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, summary("a", base, "2", "3")))
	failed := summary("b", base.Add(time.Hour))
	failed.StopReason = types.StopFailed
	failed.Error = "login: timeout"
	require.NoError(t, s.SaveRun(ctx, failed))

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, "b", runs[0].ID)
	require.Equal(t, types.StopFailed, runs[0].StopReason)
	require.Equal(t, "login: timeout", runs[0].Error)

	require.Equal(t, "a", runs[1].ID)
	require.Equal(t, types.ModeScroll, runs[1].Mode)
	require.Equal(t, 2, runs[1].KudosGiven)
	require.Equal(t, "1001", runs[1].SelfID)
	require.True(t, base.Equal(runs[1].StartedAt))
	require.Equal(t, time.Minute, runs[1].Elapsed())

	runs, err = s.RecentRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func TestSaveRunTwiceReplacesEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, summary("a", base, "2")))
	require.NoError(t, s.SaveRun(ctx, summary("a", base, "2", "2")))

	top, err := s.TopAthletes(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []AthleteCount{{OwnerID: "2", Kudos: 2}}, top)

	total, err := s.TotalKudos(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestTopAthletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, summary("a", base, "2", "3", "")))
	require.NoError(t, s.SaveRun(ctx, summary("b", base.Add(time.Hour), "3", "4")))

	top, err := s.TopAthletes(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, []AthleteCount{{OwnerID: "3", Kudos: 2}, {OwnerID: "2", Kudos: 1}}, top)

	total, err := s.TotalKudos(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, total)
}

func TestEmptyHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, runs)

	total, err := s.TotalKudos(ctx)
	require.NoError(t, err)
	require.Zero(t, total)
}
