package feed

// Strava DOM hooks. These are isolated here because the feed markup changes
// without notice; update these when scanning breaks.

const (
	// Feed
	WebFeedEntry = `[data-testid="web-feed-entry"]`

	// Test ids looked up inside an entry
	EntryHeaderID       = "entry-header"
	KudosContainerID    = "kudos_comments_container"
	OwnerNameID         = "owners-name"
	UnfilledKudosID     = "unfilled_kudos"
	FilledKudosID       = "filled_kudos"
	GroupHeaderID       = "group-header"
	ClubPostHeaderLinks = `.clubMemberPostHeaderLinks`

	// Logged-in chrome
	UserMenu     = `.user-menu`
	UserMenuLink = `.user-menu > a`

	// Login form
	LoginEmail    = `#email`
	LoginPassword = `#password`
	LoginSubmit   = `button[type='submit']`
	LoginError    = `.alert-message`

	// Updated terms of service dialog, matched by its button label
	TermsButton     = `button`
	AcceptTermsText = "Accept"
)

// AthletePathMarker precedes the athlete id in profile links.
const AthletePathMarker = "/athletes/"
