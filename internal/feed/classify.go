// Package feed decides which activities in the dashboard feed can receive
// kudos. It only reads the page; clicking is the kudos package's job.
package feed

import (
	"context"
	"fmt"

	"github.com/ibeckermayer/kudos4me/internal/session"
)

// Kind is the shape of a feed entry.
type Kind int

const (
	// KindSkip entries never receive kudos (club and promotional posts).
	KindSkip Kind = iota
	// KindSingle entries hold one activity.
	KindSingle
	// KindGrouped entries bundle several athletes' activities.
	KindGrouped
)

func (k Kind) String() string {
	switch k {
	case KindSkip:
		return "skip"
	case KindSingle:
		return "single"
	case KindGrouped:
		return "grouped"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ReasonPromotional is the skip reason for club and promotional posts.
const ReasonPromotional = "promotional"

// Participant is one athlete's activity inside an entry.
type Participant struct {
	Index int
	// Owner is searched for the owner-name link.
	Owner session.Locator
	// Controls is searched for the kudos control.
	Controls session.Locator
}

// Classification is the result of Classify.
type Classification struct {
	Kind         Kind
	Reason       string
	Participants []Participant
}

// Classify inspects one feed entry. Promotional markers are checked first and
// short-circuit everything else. An entry with at most one header is treated
// as a single activity spanning the whole entry.
func Classify(ctx context.Context, entry session.Locator) (Classification, error) {
	promo, err := IsPromotional(ctx, entry)
	if err != nil {
		return Classification{}, err
	}
	if promo {
		return Classification{Kind: KindSkip, Reason: ReasonPromotional}, nil
	}

	headers := entry.ByTestID(EntryHeaderID)
	n, err := headers.Count(ctx)
	if err != nil {
		return Classification{}, fmt.Errorf("failed to count entry headers: %w", err)
	}

	if n <= 1 {
		return Classification{
			Kind:         KindSingle,
			Participants: []Participant{{Index: 0, Owner: entry, Controls: entry}},
		}, nil
	}

	containers := entry.ByTestID(KudosContainerID)
	participants := make([]Participant, n)
	for i := range participants {
		participants[i] = Participant{
			Index:    i,
			Owner:    headers.Nth(i),
			Controls: containers.Nth(i),
		}
	}
	return Classification{Kind: KindGrouped, Participants: participants}, nil
}

// IsPromotional reports whether entry is a club or promotional post.
func IsPromotional(ctx context.Context, entry session.Locator) (bool, error) {
	for _, marker := range []session.Locator{
		entry.ByTestID(GroupHeaderID),
		entry.Locate(ClubPostHeaderLinks),
	} {
		n, err := marker.Count(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check promotional marker: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
