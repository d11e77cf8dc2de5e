package docsync

import (
	"strings"
	"testing"
	"time"

	"github.com/danielolaszy/jiradocs/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(suppress bool) *Renderer {
	r := NewRenderer(time.UTC, suppress)
	r.now = func() time.Time { return time.Date(2026, 2, 3, 14, 5, 0, 0, time.UTC) }
	return r
}

func sampleRecord() *models.IssueRecord {
	return &models.IssueRecord{
		Key:         "PROJ-1",
		Title:       "Checkout flow",
		URL:         "https://example.atlassian.net/browse/PROJ-1",
		Type:        models.TypeStory,
		Status:      "In Progress",
		Priority:    "High",
		Assignee:    "Ada",
		Reporter:    "Bob",
		Description: "Build the checkout.",
		Labels:      []string{"payments", "web"},
		Sprints:     []string{"Sprint 1"},
		TShirtSize:  "M",
		StoryPoints: "5",
		WorkType:    models.NotAvailable,
		CreatedDate: "2026-01-10T09:00:00.000+0000",
		UpdatedDate: "garbage",
		Comments: []models.Comment{
			{ID: "2", Author: "Eve", Body: "**Approved** by __QA__", Timestamp: "2026-01-12T16:30:00.000+0000"},
			{ID: "1", Author: "System", Body: "note", Timestamp: ""},
		},
		LinkedIssues: []models.LinkedIssueSummary{
			{
				Key: "PROJ-2", Title: "Payment API", Status: "Done", TShirtSize: "S",
				Description: "Expose\n  the API", URL: "https://example.atlassian.net/browse/PROJ-2",
				Comments: []models.Comment{{Author: "Ann", Body: "line one\nline two", Timestamp: "2026-01-05T08:00:00.000+0000"}},
			},
			{
				Key: "PROJ-3", Title: "Audit", Status: "Open", Rationale: "Needed for compliance",
				URL: "https://example.atlassian.net/browse/PROJ-3",
			},
			{Key: "PROJ-4", Title: "Error fetching", URL: "https://example.atlassian.net/browse/PROJ-4", Degraded: true},
		},
	}
}

func TestRenderSection(t *testing.T) {
	section := newTestRenderer(false).Section(sampleRecord(), nil)

	assert.Equal(t, "PROJ-1", section.Key)
	assert.Equal(t, "PROJ-1: Checkout flow", section.Header)

	expected := strings.Join([]string{
		"Status: In Progress",
		"Reporter: Bob",
		"Assignee: Ada",
		"Sprint History: Sprint 1",
		"T-Shirt Size: M",
		"Work Type: N/A",
		"Business Team: N/A",
		"Business Objective: N/A",
		"Impact: N/A",
		"Labels: payments, web",
		"Synced: Feb 3, 2026, 2:05 PM (UTC)",
		"Created: Jan 10, 2026, 9:00 AM (UTC) | Updated: N/A",
		"Link: https://example.atlassian.net/browse/PROJ-1",
		"",
		"Description",
		"Build the checkout.",
		"",
		"Linked Tickets:",
		"* PROJ-2: Payment API",
		"  - Status: Done",
		"  - T-Shirt: S",
		"  - Description: Expose the API",
		"  - Link: https://example.atlassian.net/browse/PROJ-2",
		"  - Comments: [Jan 5, 2026, 8:00 AM (UTC)] Ann: line one line two",
		"* PROJ-3: Audit",
		"  - Status: Open",
		"  - T-Shirt: N/A",
		"  - Context: Needed for compliance",
		"  - Link: https://example.atlassian.net/browse/PROJ-3",
		"* PROJ-4: Error fetching",
		"  - Link: https://example.atlassian.net/browse/PROJ-4",
		Divider,
		"Latest Comments",
		"[Jan 12, 2026, 4:30 PM (UTC)] Eve: Approved by QA",
		"[Unknown] System: note",
		"",
		"---",
	}, "\n") + "\n"

	assert.Equal(t, expected, section.Body)
}

func TestRenderSectionDefaults(t *testing.T) {
	section := newTestRenderer(false).Section(&models.IssueRecord{Key: "P-1", Title: "Bare", Status: "Pending"}, nil)

	assert.Contains(t, section.Body, "Sprint History: No Sprints\n")
	assert.Contains(t, section.Body, "Labels: None\n")
	assert.Contains(t, section.Body, "Assignee: Unassigned\n")
	assert.Contains(t, section.Body, "Created: N/A | Updated: N/A\n")
	assert.Contains(t, section.Body, "Latest Comments\n_No recent comments_\n")
	assert.NotContains(t, section.Body, "Linked Tickets:")
	assert.True(t, strings.HasSuffix(section.Body, "\n---\n"))
}

func TestRenderCoSyncedSuppression(t *testing.T) {
	record := sampleRecord()
	coSynced := map[string]bool{"PROJ-1": true, "PROJ-3": true}

	t.Run("Disabled keeps context", func(t *testing.T) {
		body := newTestRenderer(false).Section(record, coSynced).Body
		assert.Contains(t, body, "  - Context: Needed for compliance")
	})

	t.Run("Enabled drops context for co-synced issues only", func(t *testing.T) {
		body := newTestRenderer(true).Section(record, coSynced).Body
		assert.NotContains(t, body, "Needed for compliance")
		assert.Contains(t, body, "* PROJ-3: Audit\n  - Link: https://example.atlassian.net/browse/PROJ-3\n")
		assert.Contains(t, body, "  - Description: Expose the API")
	})
}

func TestFormatTimestamp(t *testing.T) {
	budapest, err := time.LoadLocation("Europe/Budapest")
	require.NoError(t, err)
	r := NewRenderer(budapest, false)

	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "Jira format", raw: "2026-07-01T10:00:00.000+0000", expected: "Jul 1, 2026, 12:00 PM (CEST)"},
		{name: "RFC3339", raw: "2026-01-01T10:00:00Z", expected: "Jan 1, 2026, 11:00 AM (CET)"},
		{name: "Empty", raw: "", expected: models.NotAvailable},
		{name: "Unparsable", raw: "yesterday", expected: models.NotAvailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, r.FormatTimestamp(tc.raw))
		})
	}
}

func TestFormatPlainText(t *testing.T) {
	text := FormatPlainText(sampleRecord())

	assert.True(t, strings.HasPrefix(text, "ISSUE: PROJ-1: Checkout flow\nURL: https://example.atlassian.net/browse/PROJ-1\nSTATUS: In Progress\nTYPE: STORY\n"))
	assert.Contains(t, text, "METADATA: Story Points: 5 | T-Shirt: M | Sprints: Sprint 1")
	assert.Contains(t, text, "\n--- DESCRIPTION ---\nBuild the checkout.")
	assert.Contains(t, text, "[1] Eve: **Approved** by __QA__")
	assert.Contains(t, text, "- PROJ-3 (Open): Audit\n  Rationale: Needed for compliance")

	bare := FormatPlainText(&models.IssueRecord{Key: "P-1", Type: models.TypeOther, TShirtSize: models.NotAvailable})
	assert.NotContains(t, bare, "METADATA")
	assert.Contains(t, bare, "No description provided.")
	assert.NotContains(t, bare, "COMMENTS")
}
