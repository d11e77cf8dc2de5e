package jira

import (
	"encoding/json"
	"fmt"
)

// Issue is a Jira v3 issue payload. Typed fields cover the system fields the
// record builder reads; Raw keeps every field, custom ones included, as
// decoded JSON for field normalization.
type Issue struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Fields IssueFields    `json:"-"`
	Raw    map[string]any `json:"-"`
}

// IssueFields contains the system fields of a Jira issue.
type IssueFields struct {
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description"`
	Status      *NamedField     `json:"status"`
	Priority    *NamedField     `json:"priority"`
	IssueType   *NamedField     `json:"issuetype"`
	Assignee    *UserField      `json:"assignee"`
	Reporter    *UserField      `json:"reporter"`
	Labels      []string        `json:"labels"`
	Created     string          `json:"created"`
	Updated     string          `json:"updated"`
	IssueLinks  []IssueLink     `json:"issuelinks"`
	Subtasks    []IssueRef      `json:"subtasks"`
	Comment     *CommentPage    `json:"comment"`
}

// NamedField is any Jira object identified by a display name
// (status, priority, issue type, link type).
type NamedField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserField represents a Jira user.
type UserField struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
}

// IssueRef is a reference to another issue.
type IssueRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// IssueLink is one issue-link relation. Exactly one of OutwardIssue and
// InwardIssue is set.
type IssueLink struct {
	ID           string     `json:"id"`
	Type         NamedField `json:"type"`
	OutwardIssue *IssueRef  `json:"outwardIssue"`
	InwardIssue  *IssueRef  `json:"inwardIssue"`
}

// Target returns the key on the other side of the link.
func (l IssueLink) Target() string {
	if l.OutwardIssue != nil && l.OutwardIssue.Key != "" {
		return l.OutwardIssue.Key
	}
	if l.InwardIssue != nil {
		return l.InwardIssue.Key
	}
	return ""
}

// Comment is a raw Jira comment. Body is ADF on v3 and a plain string on
// older instances.
type Comment struct {
	ID      string          `json:"id"`
	Author  *UserField      `json:"author"`
	Body    json.RawMessage `json:"body"`
	Created string          `json:"created"`
}

// CommentPage is the paginated comment envelope.
type CommentPage struct {
	StartAt    int       `json:"startAt"`
	MaxResults int       `json:"maxResults"`
	Total      int       `json:"total"`
	Comments   []Comment `json:"comments"`
}

// UnmarshalJSON decodes the typed view and the raw field map in one pass.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var envelope struct {
		ID     string          `json:"id"`
		Key    string          `json:"key"`
		Fields json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}

	i.ID = envelope.ID
	i.Key = envelope.Key
	i.Fields = IssueFields{}
	i.Raw = map[string]any{}

	if len(envelope.Fields) == 0 || string(envelope.Fields) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Fields, &i.Fields); err != nil {
		return fmt.Errorf("decode issue fields: %w", err)
	}
	if err := json.Unmarshal(envelope.Fields, &i.Raw); err != nil {
		return fmt.Errorf("decode raw issue fields: %w", err)
	}
	return nil
}

// searchRequest is the body of POST /rest/api/3/search/jql.
type searchRequest struct {
	JQL        string   `json:"jql"`
	Fields     []string `json:"fields"`
	MaxResults int      `json:"maxResults"`
}

type searchResponse struct {
	Issues []IssueRef `json:"issues"`
}
