package feed

import (
	"context"
	"log/slog"
	"strings"
)

// ParseAthleteID extracts the athlete id from a profile link such as
// "/athletes/12345" or "https://www.strava.com/athletes/12345?x=1".
func ParseAthleteID(href string) (string, bool) {
	_, rest, found := strings.Cut(href, AthletePathMarker)
	if !found {
		return "", false
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}

// OwnerID reads the athlete id of the participant's owner-name link.
func OwnerID(ctx context.Context, p Participant) (string, bool) {
	href, ok, err := p.Owner.ByTestID(OwnerNameID).Attribute(ctx, "href")
	if err != nil || !ok {
		return "", false
	}
	return ParseAthleteID(href)
}

// IsSelf reports whether p was posted by selfID. When the owner cannot be
// determined it answers false so the kudos opportunity is not lost; giving
// kudos to your own activity is a no-op on Strava. An empty selfID matches
// no one.
func IsSelf(ctx context.Context, p Participant, selfID string) bool {
	_, self := ownership(ctx, p, selfID)
	return self
}

func ownership(ctx context.Context, p Participant, selfID string) (owner string, self bool) {
	owner, ok := OwnerID(ctx, p)
	if selfID == "" {
		return owner, false
	}
	if !ok {
		slog.WarnContext(ctx, "could not read activity owner, assuming someone else", "participant", p.Index)
		return "", false
	}
	return owner, owner == selfID
}
