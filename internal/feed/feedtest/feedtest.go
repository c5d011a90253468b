// Package feedtest builds dashboard HTML shaped like Strava's feed for tests
// and wires kudos clicks on htmlsession pages.
package feedtest

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/kudos4me/internal/feed"
	"github.com/ibeckermayer/kudos4me/internal/session/htmlsession"
)

// Kudos is the rendered state of an activity's kudos control.
type Kudos int

const (
	Unfilled Kudos = iota
	Filled
	NoControl
)

// Activity is one athlete's activity.
type Activity struct {
	// OwnerID is the athlete id; empty renders an owner link without href.
	OwnerID string
	Kudos   Kudos
}

func control(k Kudos) string {
	switch k {
	case Unfilled:
		return `<button data-testid="kudos_button"><svg data-testid="unfilled_kudos"></svg></button>`
	case Filled:
		return `<button data-testid="kudos_button"><svg data-testid="filled_kudos"></svg></button>`
	default:
		return ``
	}
}

func owner(id string) string {
	if id == "" {
		return `<a data-testid="owners-name">Someone</a>`
	}
	return fmt.Sprintf(`<a data-testid="owners-name" href="/athletes/%s">Athlete %s</a>`, id, id)
}

// Single renders an entry with one activity.
func Single(a Activity) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry">
  <div data-testid="entry-header">%s</div>
  <div class="activity-body">Morning Run</div>
  <div data-testid="kudos_comments_container">%s</div>
</div>`, owner(a.OwnerID), control(a.Kudos))
}

// Legacy renders a single-activity entry without a nested entry header.
func Legacy(a Activity) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry">
  %s
  <div data-testid="kudos_comments_container">%s</div>
</div>`, owner(a.OwnerID), control(a.Kudos))
}

// Grouped renders a group activity with one header and kudos container per
// participant.
func Grouped(as ...Activity) string {
	var b strings.Builder
	b.WriteString(`<div data-testid="web-feed-entry"><ul class="group-activities">`)
	for _, a := range as {
		fmt.Fprintf(&b, `<li><div data-testid="entry-header">%s</div><div data-testid="kudos_comments_container">%s</div></li>`,
			owner(a.OwnerID), control(a.Kudos))
	}
	b.WriteString(`</ul></div>`)
	return b.String()
}

// Club renders a club post. It carries an unfilled control that must never
// be clicked.
func Club(a Activity) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry">
  <div data-testid="group-header"><a href="/clubs/1">Club</a></div>
  <div data-testid="entry-header">%s</div>
  <div data-testid="kudos_comments_container">%s</div>
</div>`, owner(a.OwnerID), control(a.Kudos))
}

// ClubMemberPost renders a club member post marked by its header links.
func ClubMemberPost(a Activity) string {
	return fmt.Sprintf(`<div data-testid="web-feed-entry">
  <div class="clubMemberPostHeaderLinks"><a href="/clubs/2">Club</a></div>
  %s
  <div data-testid="kudos_comments_container">%s</div>
</div>`, owner(a.OwnerID), control(a.Kudos))
}

// Dashboard renders a logged-in dashboard containing entries. An empty
// selfID omits the user menu link.
func Dashboard(selfID string, entries ...string) string {
	menu := `<div class="user-menu"><span>Menu</span></div>`
	if selfID != "" {
		menu = fmt.Sprintf(`<div class="user-menu"><a href="/athletes/%s">Me</a></div>`, selfID)
	}
	return fmt.Sprintf(`<html><body><header>%s</header><main><div class="feed">%s</div></main></body></html>`,
		menu, strings.Join(entries, "\n"))
}

// FeedSelector is where lazily loaded entries are appended.
const FeedSelector = ".feed"

// LoginPage is a minimal login form.
const LoginPage = `<html><body><form>
<input id="email"><input id="password" type="password">
<button type="submit">Log In</button>
</form></body></html>`

// GiveKudosOnClick makes element clicks on p flip unfilled controls to filled.
func GiveKudosOnClick(p *htmlsession.Page) {
	p.OnElementClick = func(_ *htmlsession.Page, el *goquery.Selection) {
		if id, _ := el.Attr("data-testid"); id == feed.UnfilledKudosID {
			el.SetAttr("data-testid", feed.FilledKudosID)
		}
	}
}

// Page returns an htmlsession page showing a dashboard with entries, with
// kudos clicks wired.
func Page(selfID string, entries ...string) *htmlsession.Page {
	p, err := htmlsession.FromHTML(Dashboard(selfID, entries...))
	if err != nil {
		panic(err)
	}
	GiveKudosOnClick(p)
	return p
}
