// Package jira provides the issue source used for extraction: the field
// catalog, issues, comments and child-issue discovery over the Jira REST API.
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/jiradocs/internal/config"
	"github.com/danielolaszy/jiradocs/internal/fields"
	"github.com/danielolaszy/jiradocs/internal/logging"
)

const commentPageSize = 100

// FetchError reports a failed call against the Jira API.
type FetchError struct {
	// Op names the call that failed (e.g., "fetch issue")
	Op string

	// Key is the issue key involved, if any
	Key string

	// StatusCode is the HTTP status returned, zero on transport failures
	StatusCode int

	Err error
}

func (e *FetchError) Error() string {
	subject := e.Op
	if e.Key != "" {
		subject = fmt.Sprintf("%s %s", e.Op, e.Key)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: jira API returned %d: %v", subject, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", subject, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from a FetchError anywhere in err's
// chain, or returns zero.
func StatusCode(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.StatusCode
	}
	return 0
}

// Client handles interactions with the JIRA API.
type Client struct {
	client  *jira.Client
	baseURL string
}

// NewClient creates a JIRA client for the given instance. Credentials are
// optional; without them requests are sent anonymously.
func NewClient(cfg config.JiraConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}

	var httpClient *http.Client
	if cfg.Username != "" && cfg.Token != "" {
		tp := jira.BasicAuthTransport{
			Username: cfg.Username,
			Password: cfg.Token,
		}
		httpClient = tp.Client()
	} else {
		logging.Warn("jira credentials not set, using anonymous access",
			"url", cfg.URL)
		httpClient = http.DefaultClient
	}

	client, err := jira.NewClient(httpClient, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logging.Debug("jira client created",
		"url", cfg.URL,
		"username", cfg.Username,
		"token", logging.MaskSensitive(cfg.Token))

	return &Client{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
	}, nil
}

// BaseURL returns the instance URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FieldCatalog returns every field known to the instance, custom fields
// included.
func (c *Client) FieldCatalog(ctx context.Context) ([]fields.Field, error) {
	if c.client == nil {
		return nil, fmt.Errorf("JIRA client not initialized")
	}

	list, resp, err := c.client.Field.GetListWithContext(ctx)
	if err != nil {
		fe := &FetchError{Op: "fetch field catalog", Err: err}
		if resp != nil {
			fe.StatusCode = resp.StatusCode
		}
		return nil, fe
	}

	result := make([]fields.Field, 0, len(list))
	for _, f := range list {
		result = append(result, fields.Field{ID: f.ID, Name: f.Name})
	}

	logging.Debug("fetched field catalog", "count", len(result))
	return result, nil
}

// GetIssue fetches a single issue. When fieldNames is empty every field is
// returned.
func (c *Client) GetIssue(ctx context.Context, key string, fieldNames ...string) (*Issue, error) {
	path := "rest/api/3/issue/" + url.PathEscape(key)
	if len(fieldNames) > 0 {
		path += "?" + url.Values{"fields": {strings.Join(fieldNames, ",")}}.Encode()
	}

	var issue Issue
	if err := c.do(ctx, "fetch issue", key, http.MethodGet, path, nil, &issue); err != nil {
		return nil, err
	}

	logging.Debug("fetched jira issue", "issue", key)
	return &issue, nil
}

// GetComments returns every comment on an issue in the order Jira returns
// them (oldest first).
func (c *Client) GetComments(ctx context.Context, key string) ([]Comment, error) {
	var all []Comment
	startAt := 0

	for {
		params := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(commentPageSize)},
		}
		path := fmt.Sprintf("rest/api/3/issue/%s/comment?%s", url.PathEscape(key), params.Encode())

		var page CommentPage
		if err := c.do(ctx, "fetch comments", key, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Comments...)

		if len(page.Comments) == 0 || startAt+len(page.Comments) >= page.Total {
			break
		}
		startAt += len(page.Comments)
	}

	logging.Debug("fetched jira comments", "issue", key, "count", len(all))
	return all, nil
}

// SearchChildIssues returns the keys of issues whose parent (or legacy Epic
// Link) is parentKey, oldest first.
func (c *Client) SearchChildIssues(ctx context.Context, parentKey string, maxResults int) ([]string, error) {
	body := searchRequest{
		JQL:        ChildIssuesJQL(parentKey),
		Fields:     []string{"key"},
		MaxResults: maxResults,
	}

	var result searchResponse
	if err := c.do(ctx, "search child issues", parentKey, http.MethodPost, "rest/api/3/search/jql", body, &result); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if issue.Key != "" {
			keys = append(keys, issue.Key)
		}
	}

	logging.Info("discovered child issues", "parent", parentKey, "count", len(keys))
	return keys, nil
}

// ChildIssuesJQL builds the child discovery query for a parent or epic key.
func ChildIssuesJQL(parentKey string) string {
	return fmt.Sprintf(`"parent" = %s OR "Epic Link" = %s order by created ASC`, parentKey, parentKey)
}

// do executes an API call and decodes the response into v.
func (c *Client) do(ctx context.Context, op, key, method, path string, body, v any) error {
	if c.client == nil {
		return fmt.Errorf("JIRA client not initialized")
	}

	req, err := c.client.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return &FetchError{Op: op, Key: key, Err: err}
	}

	resp, err := c.client.Do(req, v)
	if err != nil {
		fe := &FetchError{Op: op, Key: key, Err: err}
		if resp != nil && resp.StatusCode >= http.StatusMultipleChoices {
			fe.StatusCode = resp.StatusCode
			fe.Err = jira.NewJiraError(resp, err)
		}
		logging.Debug("jira request failed",
			"op", op,
			"issue", key,
			"status_code", fe.StatusCode,
			"error", err)
		return fe
	}

	return nil
}
