package types

import "time"

// Mode selects how the run controller walks the feed.
type Mode string

const (
	// ModeSingle scans one capped page and stops.
	ModeSingle Mode = "single"
	// ModeScroll keeps scrolling until a budget runs out.
	ModeScroll Mode = "scroll"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopBudgetExhausted  StopReason = "budget exhausted"
	StopRetriesExhausted StopReason = "retries exhausted"
	StopFeedExhausted    StopReason = "feed exhausted"
	StopCancelled        StopReason = "cancelled"
	StopFailed           StopReason = "failed"
)

// KudosEvent records one kudos given
type KudosEvent struct {
	OwnerID string    `json:"owner_id"` // empty when the owner link was unreadable
	Pass    int       `json:"pass"`
	GivenAt time.Time `json:"given_at"`
}

// RunSummary is the outcome of one run
type RunSummary struct {
	ID         string       `json:"id"`
	Mode       Mode         `json:"mode"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	SelfID     string       `json:"self_id"`
	Passes     int          `json:"passes"`
	KudosGiven int          `json:"kudos_given"`
	StopReason StopReason   `json:"stop_reason"`
	Error      string       `json:"error,omitempty"`
	Events     []KudosEvent `json:"events,omitempty"`
}

// Elapsed returns the wall-clock duration of the run.
func (s RunSummary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
