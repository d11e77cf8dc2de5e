package docsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/danielolaszy/jiradocs/pkg/models"
)

// TimestampLayout renders timestamps with the zone abbreviation appended.
const TimestampLayout = "Jan 2, 2006, 3:04 PM (MST)"

// Divider separates an issue's details from its comment trail.
var Divider = strings.Repeat("-", 50)

var jiraLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
}

var emphasis = strings.NewReplacer("**", "", "__", "")

// Renderer turns records into document sections.
type Renderer struct {
	// Location is the zone timestamps are shown in
	Location *time.Location

	// SuppressRationaleForCoSyncedLinks reduces a linked issue to its key,
	// title and link when that issue has its own section in the same batch
	SuppressRationaleForCoSyncedLinks bool

	now func() time.Time
}

// NewRenderer creates a Renderer. A nil location means local time.
func NewRenderer(loc *time.Location, suppressCoSynced bool) *Renderer {
	if loc == nil {
		loc = time.Local
	}
	return &Renderer{
		Location:                          loc,
		SuppressRationaleForCoSyncedLinks: suppressCoSynced,
		now:                               time.Now,
	}
}

// Section renders record. coSynced holds the keys of every record written in
// the same batch.
func (r *Renderer) Section(record *models.IssueRecord, coSynced map[string]bool) Section {
	lines := []string{
		"Status: " + record.Status,
		"Reporter: " + orDefault(record.Reporter, models.NotAvailable),
		"Assignee: " + orDefault(record.Assignee, "Unassigned"),
		"Sprint History: " + joinOr(record.Sprints, "No Sprints"),
		"T-Shirt Size: " + orDefault(record.TShirtSize, models.NotAvailable),
		"Work Type: " + orDefault(record.WorkType, models.NotAvailable),
		"Business Team: " + orDefault(record.BusinessTeam, models.NotAvailable),
		"Business Objective: " + orDefault(record.BusinessObjective, models.NotAvailable),
		"Impact: " + orDefault(record.Impact, models.NotAvailable),
		"Labels: " + joinOr(record.Labels, "None"),
		"Synced: " + r.now().In(r.Location).Format(TimestampLayout),
		fmt.Sprintf("Created: %s | Updated: %s", r.FormatTimestamp(record.CreatedDate), r.FormatTimestamp(record.UpdatedDate)),
		"Link: " + record.URL,
		"",
		"Description",
		escapeRules(record.Description),
	}

	if len(record.LinkedIssues) > 0 {
		lines = append(lines, "", "Linked Tickets:")
		for _, li := range record.LinkedIssues {
			lines = append(lines, r.linkedIssue(li, coSynced[li.Key])...)
		}
	}

	lines = append(lines, Divider, "Latest Comments")
	if len(record.Comments) == 0 {
		lines = append(lines, "_No recent comments_")
	}
	for _, c := range record.Comments {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", r.commentTimestamp(c.Timestamp), c.Author, escapeRules(emphasis.Replace(c.Body))))
	}
	lines = append(lines, "", "---")

	return Section{
		Key:    record.Key,
		Header: fmt.Sprintf("%s: %s", record.Key, record.Title),
		Body:   strings.Join(lines, "\n") + "\n",
	}
}

func (r *Renderer) linkedIssue(li models.LinkedIssueSummary, coSynced bool) []string {
	lines := []string{fmt.Sprintf("* %s: %s", li.Key, li.Title)}
	if li.Degraded || (coSynced && r.SuppressRationaleForCoSyncedLinks) {
		return append(lines, "  - Link: "+li.URL)
	}

	lines = append(lines,
		"  - Status: "+orDefault(li.Status, "Unknown"),
		"  - T-Shirt: "+orDefault(li.TShirtSize, models.NotAvailable),
	)
	if desc := singleLine(li.Description); desc != "" {
		lines = append(lines, "  - Description: "+desc)
	} else {
		lines = append(lines, "  - Context: "+orDefault(li.Rationale, models.NotAvailable))
	}
	lines = append(lines, "  - Link: "+li.URL)

	if len(li.Comments) > 0 {
		trail := make([]string, 0, len(li.Comments))
		for _, c := range li.Comments {
			trail = append(trail, fmt.Sprintf("[%s] %s: %s", r.commentTimestamp(c.Timestamp), c.Author, singleLine(emphasis.Replace(c.Body))))
		}
		lines = append(lines, "  - Comments: "+strings.Join(trail, " | "))
	}
	return lines
}

// FormatTimestamp renders a Jira timestamp in the renderer's location, or
// N/A when it is missing or unparsable.
func (r *Renderer) FormatTimestamp(raw string) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		return models.NotAvailable
	}
	return t.In(r.Location).Format(TimestampLayout)
}

func (r *Renderer) commentTimestamp(raw string) string {
	if raw == "" {
		return "Unknown"
	}
	t, ok := parseTimestamp(raw)
	if !ok {
		return raw
	}
	return t.In(r.Location).Format(TimestampLayout)
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range jiraLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatPlainText renders record as a compact plain-text brief.
func FormatPlainText(record *models.IssueRecord) string {
	lines := []string{
		fmt.Sprintf("ISSUE: %s: %s", record.Key, record.Title),
		"URL: " + record.URL,
		"STATUS: " + record.Status,
		"TYPE: " + strings.ToUpper(string(record.Type)),
	}
	if record.Priority != "" {
		lines = append(lines, "PRIORITY: "+record.Priority)
	}
	if record.Assignee != "" {
		lines = append(lines, "ASSIGNEE: "+record.Assignee)
	}

	var metadata []string
	if known(record.StoryPoints) {
		metadata = append(metadata, "Story Points: "+record.StoryPoints)
	}
	if known(record.TShirtSize) {
		metadata = append(metadata, "T-Shirt: "+record.TShirtSize)
	}
	if len(record.Sprints) > 0 {
		metadata = append(metadata, "Sprints: "+strings.Join(record.Sprints, ", "))
	}
	if len(metadata) > 0 {
		lines = append(lines, "METADATA: "+strings.Join(metadata, " | "))
	}

	lines = append(lines, "\n--- DESCRIPTION ---", orDefault(record.Description, "No description provided."))

	if len(record.Comments) > 0 {
		lines = append(lines, "\n--- COMMENTS ---")
		for i, c := range record.Comments {
			lines = append(lines, fmt.Sprintf("[%d] %s: %s", i+1, c.Author, c.Body))
		}
	}

	if len(record.LinkedIssues) > 0 {
		lines = append(lines, "\n--- LINKED CONTEXT ---")
		for _, li := range record.LinkedIssues {
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", li.Key, li.Status, li.Title))
			if li.Rationale != "" {
				lines = append(lines, "  Rationale: "+li.Rationale)
			}
		}
	}

	return strings.Join(lines, "\n")
}

func known(s string) bool {
	return s != "" && s != models.NotAvailable
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

// escapeRules spaces out any line of user text that would read as a section
// closing rule, so "---" becomes "- - -".
func escapeRules(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if trimmed := strings.TrimSpace(line); isRule(trimmed) {
			lines[i] = strings.Join(strings.Split(trimmed, ""), " ")
		}
	}
	return strings.Join(lines, "\n")
}

// singleLine collapses all whitespace runs to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
