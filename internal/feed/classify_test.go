package feed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/feed/feedtest"
	"github.com/ibeckermayer/kudos4me/internal/session"
)

func sessionClick() session.ClickOptions { return session.ClickOptions{} }

func TestClassify(t *testing.T) {
	a := feedtest.Activity{OwnerID: "2001", Kudos: feedtest.Unfilled}
	b := feedtest.Activity{OwnerID: "2002", Kudos: feedtest.Filled}

	tests := []struct {
		name         string
		entry        string
		kind         feed.Kind
		participants int
	}{
		{"club", feedtest.Club(a), feed.KindSkip, 0},
		{"club member post", feedtest.ClubMemberPost(a), feed.KindSkip, 0},
		{"single", feedtest.Single(a), feed.KindSingle, 1},
		{"legacy without header", feedtest.Legacy(a), feed.KindSingle, 1},
		{"group of one", feedtest.Grouped(a), feed.KindSingle, 1},
		{"group", feedtest.Grouped(a, b, a), feed.KindGrouped, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := feedtest.Page("", tt.entry)
			c, err := feed.Classify(context.Background(), p.Locate(feed.WebFeedEntry).Nth(0))
			require.NoError(t, err)
			require.Equal(t, tt.kind, c.Kind)
			require.Len(t, c.Participants, tt.participants)
			if tt.kind == feed.KindSkip {
				require.Equal(t, feed.ReasonPromotional, c.Reason)
			}
		})
	}
}

func TestClassifyGroupedPairsHeadersWithContainers(t *testing.T) {
	p := feedtest.Page("", feedtest.Grouped(
		feedtest.Activity{OwnerID: "2001", Kudos: feedtest.Filled},
		feedtest.Activity{OwnerID: "2002", Kudos: feedtest.Unfilled},
	))
	ctx := context.Background()

	c, err := feed.Classify(ctx, p.Locate(feed.WebFeedEntry).Nth(0))
	require.NoError(t, err)

	id, ok := feed.OwnerID(ctx, c.Participants[1])
	require.True(t, ok)
	require.Equal(t, "2002", id)

	control, err := feed.LocateControl(ctx, c.Participants[1])
	require.NoError(t, err)
	require.Equal(t, feed.ControlUnfilled, control.State)

	control, err = feed.LocateControl(ctx, c.Participants[0])
	require.NoError(t, err)
	require.Equal(t, feed.ControlFilled, control.State)
}

func TestParseAthleteID(t *testing.T) {
	tests := []struct {
		href string
		id   string
		ok   bool
	}{
		{"/athletes/12345", "12345", true},
		{"https://www.strava.com/athletes/12345", "12345", true},
		{"/athletes/12345/", "12345", true},
		{"/athletes/12345?utm=feed", "12345", true},
		{"/athletes/12345#top", "12345", true},
		{"/athletes/", "", false},
		{"/clubs/99", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		id, ok := feed.ParseAthleteID(tt.href)
		require.Equal(t, tt.ok, ok, tt.href)
		require.Equal(t, tt.id, id, tt.href)
	}
}

func TestIsSelf(t *testing.T) {
	p := feedtest.Page("",
		feedtest.Single(feedtest.Activity{OwnerID: "1001"}),
		feedtest.Single(feedtest.Activity{OwnerID: ""}),
	)
	ctx := context.Background()
	entries := p.Locate(feed.WebFeedEntry)
	mine := feed.Participant{Owner: entries.Nth(0), Controls: entries.Nth(0)}
	unknown := feed.Participant{Owner: entries.Nth(1), Controls: entries.Nth(1)}

	require.True(t, feed.IsSelf(ctx, mine, "1001"))
	require.False(t, feed.IsSelf(ctx, mine, "2001"))
	require.False(t, feed.IsSelf(ctx, mine, ""), "unknown self matches no one")
	require.False(t, feed.IsSelf(ctx, unknown, "1001"), "unreadable owner fails open")
}
