package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibeckermayer/kudos4me/internal/session"
)

// ControlState is the kudos control's state as rendered.
type ControlState int

const (
	ControlAbsent ControlState = iota
	ControlUnfilled
	ControlFilled
)

func (s ControlState) String() string {
	switch s {
	case ControlUnfilled:
		return "unfilled"
	case ControlFilled:
		return "filled"
	default:
		return "absent"
	}
}

// Control is a kudos button worth clicking.
type Control struct {
	Button      session.Locator
	State       ControlState
	OwnerID     string
	Entry       int
	Participant int
}

// ScanStats counts what a scan saw, for progress logging.
type ScanStats struct {
	Entries     int
	Promotional int
	Self        int
	Filled      int
	Absent      int
	Failed      int
	Eligible    int
}

// Scanner walks the rendered feed and collects unfilled kudos controls.
type Scanner struct{}

// NewScanner creates a new scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan returns, in document order, the unfilled kudos controls of every
// entry that is not promotional and not posted by selfID. It never mutates
// the page. A failing entry is logged and skipped.
func (s *Scanner) Scan(ctx context.Context, entries session.Locator, selfID string) ([]Control, ScanStats, error) {
	var stats ScanStats

	n, err := entries.Count(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to count feed entries: %w", err)
	}
	stats.Entries = n

	var controls []Control
	for i := 0; i < n; i++ {
		entry := entries.Nth(i)

		c, err := Classify(ctx, entry)
		if err != nil {
			stats.Failed++
			slog.WarnContext(ctx, "failed to classify feed entry", "entry", i, "err", err)
			continue
		}
		if c.Kind == KindSkip {
			stats.Promotional++
			continue
		}

		for _, p := range c.Participants {
			owner, self := ownership(ctx, p, selfID)
			if self {
				stats.Self++
				continue
			}

			control, err := LocateControl(ctx, p)
			if err != nil {
				stats.Failed++
				slog.WarnContext(ctx, "failed to locate kudos control", "entry", i, "participant", p.Index, "err", err)
				continue
			}
			switch control.State {
			case ControlFilled:
				stats.Filled++
				continue
			case ControlAbsent:
				stats.Absent++
				continue
			}

			control.OwnerID = owner
			control.Entry = i
			control.Participant = p.Index
			controls = append(controls, control)
		}
	}
	stats.Eligible = len(controls)

	return controls, stats, nil
}

// LocateControl finds the participant's kudos control and reports its state.
func LocateControl(ctx context.Context, p Participant) (Control, error) {
	unfilled := p.Controls.ByTestID(UnfilledKudosID)
	n, err := unfilled.Count(ctx)
	if err != nil {
		return Control{}, err
	}
	if n > 0 {
		return Control{Button: unfilled, State: ControlUnfilled}, nil
	}

	filled := p.Controls.ByTestID(FilledKudosID)
	n, err = filled.Count(ctx)
	if err != nil {
		return Control{}, err
	}
	if n > 0 {
		return Control{Button: filled, State: ControlFilled}, nil
	}
	return Control{State: ControlAbsent}, nil
}
