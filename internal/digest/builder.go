// Package digest renders the messages sent when a run starts and ends.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"github.com/ibeckermayer/kudos4me/internal/types"
)

// Builder creates run notification messages
type Builder struct {
	template   *template.Template
	maxOwners  int
	profileURL string
}

// New creates a new digest builder. maxOwners caps the athletes listed in
// a run report; baseURL is used to link their profiles.
func New(maxOwners int, baseURL string) (*Builder, error) {
	tmpl, err := template.New("digest").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		template:   tmpl,
		maxOwners:  maxOwners,
		profileURL: baseURL + "/athletes/",
	}, nil
}

// Digest represents a compiled message ready for sending
type Digest struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	CreatedAt time.Time
}

// ReportData is the template data structure
type ReportData struct {
	Title      string
	Date       string
	KudosGiven int
	Passes     int
	StopReason string
	Elapsed    string
	Error      string
	Owners     []OwnerData
	MoreOwners int
}

// OwnerData is one athlete who received kudos in the run
type OwnerData struct {
	ID    string
	Kudos int
	URL   string
}

// Started builds the message sent when a run begins.
func (b *Builder) Started(mode types.Mode, at time.Time) *Digest {
	text := fmt.Sprintf("Kudos run started (%s mode) at %s", mode, at.Format("15:04"))
	return &Digest{
		Subject:   "Kudos run started",
		HTMLBody:  "<p>" + template.HTMLEscapeString(text) + "</p>",
		PlainBody: text,
		CreatedAt: at,
	}
}

// Finished builds the run report.
func (b *Builder) Finished(sum types.RunSummary) (*Digest, error) {
	data := ReportData{
		Title:      "Kudos run finished",
		Date:       sum.FinishedAt.Format("Monday, January 2 15:04"),
		KudosGiven: sum.KudosGiven,
		Passes:     sum.Passes,
		StopReason: string(sum.StopReason),
		Elapsed:    sum.Elapsed().Round(time.Second).String(),
		Error:      sum.Error,
	}
	if sum.Error != "" {
		data.Title = "Kudos run failed"
	}

	owners := countOwners(sum.Events)
	if b.maxOwners > 0 && len(owners) > b.maxOwners {
		data.MoreOwners = len(owners) - b.maxOwners
		owners = owners[:b.maxOwners]
	}
	for i := range owners {
		owners[i].URL = b.profileURL + owners[i].ID
	}
	data.Owners = owners

	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Digest{
		Subject:   fmt.Sprintf("%s - %d kudos given", data.Title, sum.KudosGiven),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		CreatedAt: sum.FinishedAt,
	}, nil
}

// countOwners tallies kudos per athlete, most first. Unknown owners are
// counted in the total only.
func countOwners(events []types.KudosEvent) []OwnerData {
	counts := map[string]int{}
	for _, e := range events {
		if e.OwnerID != "" {
			counts[e.OwnerID]++
		}
	}
	owners := make([]OwnerData, 0, len(counts))
	for id, n := range counts {
		owners = append(owners, OwnerData{ID: id, Kudos: n})
	}
	sort.Slice(owners, func(i, j int) bool {
		if owners[i].Kudos != owners[j].Kudos {
			return owners[i].Kudos > owners[j].Kudos
		}
		return owners[i].ID < owners[j].ID
	})
	return owners
}

func buildPlainText(data ReportData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n%s\n\n", data.Title, data.Date)
	fmt.Fprintf(&buf, "Kudos given: %d\n", data.KudosGiven)
	fmt.Fprintf(&buf, "Passes: %d\n", data.Passes)
	fmt.Fprintf(&buf, "Stopped: %s after %s\n", data.StopReason, data.Elapsed)
	if data.Error != "" {
		fmt.Fprintf(&buf, "Error: %s\n", data.Error)
	}
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #fc4c02; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .stats td { padding: 4px 12px 4px 0; }
        .error { color: #b00020; margin: 10px 0; }
        .owner { padding: 4px 0; }
        .link { color: #fc4c02; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>

        <table class="stats">
            <tr><td>Kudos given</td><td>{{.KudosGiven}}</td></tr>
            <tr><td>Passes</td><td>{{.Passes}}</td></tr>
            <tr><td>Stopped</td><td>{{.StopReason}} after {{.Elapsed}}</td></tr>
        </table>
        {{if .Error}}<div class="error">{{.Error}}</div>{{end}}

        {{range .Owners}}
        <div class="owner"><a href="{{.URL}}" class="link">Athlete {{.ID}}</a> · {{.Kudos}}</div>
        {{end}}
        {{if .MoreOwners}}<div class="owner">and {{.MoreOwners}} more</div>{{end}}

        <div class="footer">Generated by kudos4me</div>
    </div>
</body>
</html>`
