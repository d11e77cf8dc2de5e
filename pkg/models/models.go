// Package models defines data structures shared across the application.
package models

import "strings"

// IssueType is the normalized classification of a Jira issue.
type IssueType string

const (
	TypeBug   IssueType = "bug"
	TypeStory IssueType = "story"
	TypeTask  IssueType = "task"
	TypeEpic  IssueType = "epic"
	TypeOther IssueType = "other"
)

// NotAvailable is the sentinel for custom attributes that could not be resolved.
const NotAvailable = "N/A"

// ClassifyType maps a raw Jira issue type name onto an IssueType using a
// case-insensitive substring match. Order matters: bug, story, epic, task.
func ClassifyType(raw string) IssueType {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "bug"):
		return TypeBug
	case strings.Contains(lower, "story"):
		return TypeStory
	case strings.Contains(lower, "epic"):
		return TypeEpic
	case strings.Contains(lower, "task"):
		return TypeTask
	default:
		return TypeOther
	}
}

// Comment is a single Jira comment flattened to plain text.
type Comment struct {
	// ID is the Jira comment ID
	ID string `json:"id"`

	// Author is the display name of the comment author
	Author string `json:"author"`

	// Body is the comment text with rich content flattened
	Body string `json:"body"`

	// Timestamp is the raw creation timestamp as returned by Jira
	Timestamp string `json:"timestamp"`
}

// LinkedIssueSummary is the lightweight view of an issue reached through an
// issue link or a sub-task relation.
type LinkedIssueSummary struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Description string    `json:"description"`
	Comments    []Comment `json:"comments"`
	TShirtSize  string    `json:"tShirtSize"`

	// Rationale is a short extract of the most recent comment
	Rationale string `json:"rationale"`

	URL string `json:"url"`

	// Degraded is set when the issue could not be fetched and only the key,
	// URL and an error title are known.
	Degraded bool `json:"degraded,omitempty"`
}

// IssueRecord is the normalized unit of work produced by extraction and
// consumed by document synchronization.
type IssueRecord struct {
	// Key is the Jira issue key (e.g., "PROJ-123")
	Key string `json:"key"`

	// Title is the issue summary
	Title string `json:"title"`

	// URL is the browse link for the issue
	URL string `json:"url"`

	Type     IssueType `json:"type"`
	Status   string    `json:"status"`
	Priority string    `json:"priority"`

	Assignee string `json:"assignee"`
	Reporter string `json:"reporter"`

	// Description is the flattened description, empty when Jira only
	// holds its "add a description" placeholder
	Description string `json:"description"`

	// Comments are ordered newest first
	Comments []Comment `json:"comments"`

	Labels  []string `json:"labels"`
	Sprints []string `json:"sprints"`

	TShirtSize        string `json:"tShirtSize"`
	StoryPoints       string `json:"storyPoints"`
	WorkType          string `json:"workType"`
	BusinessTeam      string `json:"businessTeam"`
	BusinessObjective string `json:"businessObjective"`
	Impact            string `json:"impact"`

	// CreatedDate and UpdatedDate are raw ISO timestamps
	CreatedDate string `json:"createdDate"`
	UpdatedDate string `json:"updatedDate"`

	// LinkedIssues holds at most the configured cap of related issues
	LinkedIssues []LinkedIssueSummary `json:"linkedIssues"`
}

// IsEpic reports whether the record was classified as an epic.
func (r *IssueRecord) IsEpic() bool {
	return r != nil && r.Type == TypeEpic
}
