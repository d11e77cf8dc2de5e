// Package record builds normalized issue records from the Jira API: the issue
// itself, its comments, resolved custom attributes and a capped set of
// related issues fetched concurrently.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/danielolaszy/jiradocs/internal/adf"
	"github.com/danielolaszy/jiradocs/internal/fields"
	"github.com/danielolaszy/jiradocs/internal/jira"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/pkg/models"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxLinked caps related issues per record when Options leaves it unset.
const DefaultMaxLinked = 10

// Placeholder titles for related issues that could not be fetched.
const (
	TitleFetchError   = "Error fetching"
	TitleNetworkError = "Network Error"
)

// NoTechnicalNotes is the rationale of a related issue without comments.
const NoTechnicalNotes = "No technical notes recorded."

var (
	descriptionPlaceholder = regexp.MustCompile(`(?i)add\s+a\s+description`)
	linkedSummaryFields    = []string{"summary", "description", "status", "priority", "comment"}
)

// Source is the subset of the Jira API the builder depends on.
type Source interface {
	FieldCatalog(ctx context.Context) ([]fields.Field, error)
	GetIssue(ctx context.Context, key string, fieldNames ...string) (*jira.Issue, error)
	GetComments(ctx context.Context, key string) ([]jira.Comment, error)
}

// Options configures a Builder.
type Options struct {
	// BaseURL is the Jira instance origin used for browse links
	BaseURL string

	// MaxLinked caps linked and sub-task issues, DefaultMaxLinked when zero
	MaxLinked int
}

// Builder assembles IssueRecords.
type Builder struct {
	source    Source
	baseURL   string
	maxLinked int
	now       func() time.Time
}

// NewBuilder creates a Builder reading from source.
func NewBuilder(source Source, opts Options) *Builder {
	maxLinked := opts.MaxLinked
	if maxLinked <= 0 {
		maxLinked = DefaultMaxLinked
	}
	return &Builder{
		source:    source,
		baseURL:   strings.TrimSuffix(opts.BaseURL, "/"),
		maxLinked: maxLinked,
		now:       time.Now,
	}
}

// Build fetches key and everything needed to render it. Only a failure to
// fetch the issue itself is returned; catalog, comment and related issue
// failures degrade the record instead.
func (b *Builder) Build(ctx context.Context, key string) (*models.IssueRecord, error) {
	logging.Info("building issue record", "issue", key)

	catalog := b.fieldCatalog(ctx)

	issue, err := b.source.GetIssue(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to build record for %s: %w", key, err)
	}
	f := issue.Fields
	values := issue.Raw

	comments := b.comments(ctx, key)

	typeName := "other"
	if f.IssueType != nil && f.IssueType.Name != "" {
		typeName = f.IssueType.Name
	}

	record := &models.IssueRecord{
		Key:               key,
		Title:             f.Summary,
		URL:               b.browseURL(key),
		Type:              models.ClassifyType(typeName),
		Status:            namedOr(f.Status, "Pending"),
		Priority:          namedOr(f.Priority, "Medium"),
		Assignee:          userOr(f.Assignee, "Unassigned"),
		Reporter:          userOr(f.Reporter, "Unknown"),
		Description:       CleanDescription(adf.RawToPlainText(f.Description)),
		Comments:          comments,
		Labels:            f.Labels,
		Sprints:           sprints(catalog, values),
		TShirtSize:        fields.ResolveTShirtSize(catalog, values, comments),
		StoryPoints:       fields.Resolve(fields.StoryPointNames, catalog, values),
		WorkType:          fields.Resolve(fields.WorkTypeNames, catalog, values),
		BusinessTeam:      fields.Resolve(fields.BusinessTeamNames, catalog, values),
		BusinessObjective: fields.Resolve(fields.BusinessObjectiveNames, catalog, values),
		Impact:            fields.Resolve(fields.ImpactNames, catalog, values),
		CreatedDate:       f.Created,
		UpdatedDate:       f.Updated,
	}

	keys := LinkedKeys(issue, b.maxLinked)
	if len(keys) > 0 {
		record.LinkedIssues = b.fetchLinked(ctx, keys, catalog)
	}

	logging.Info("built issue record",
		"issue", key,
		"type", record.Type,
		"comments", len(record.Comments),
		"linked", len(record.LinkedIssues))

	return record, nil
}

func (b *Builder) fieldCatalog(ctx context.Context) fields.Catalog {
	list, err := b.source.FieldCatalog(ctx)
	if err != nil {
		logging.Warn("field discovery failed, custom fields will use fallbacks", "error", err)
		return fields.Catalog{}
	}
	return fields.NewCatalog(list)
}

// comments returns the issue's comments newest first. Authorization failures
// surface as a single System comment so the gap is visible in the document.
func (b *Builder) comments(ctx context.Context, key string) []models.Comment {
	raw, err := b.source.GetComments(ctx, key)
	if err != nil {
		status := jira.StatusCode(err)
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			logging.Warn("not authorized to read comments", "issue", key, "status_code", status)
			return []models.Comment{{
				ID:        "error-auth",
				Author:    "System",
				Body:      "Error: Could not access Jira API. Please ensure you are logged in.",
				Timestamp: b.now().UTC().Format(time.RFC3339),
			}}
		}
		logging.Warn("failed to fetch comments", "issue", key, "error", err)
		return nil
	}
	return convertComments(raw)
}

func (b *Builder) browseURL(key string) string {
	return fmt.Sprintf("%s/browse/%s", b.baseURL, key)
}

// fetchLinked fetches every key concurrently. Results keep the order of keys
// and failures become degraded placeholders.
func (b *Builder) fetchLinked(ctx context.Context, keys []string, catalog fields.Catalog) []models.LinkedIssueSummary {
	fieldNames := append(append([]string{}, linkedSummaryFields...), catalog.IDs(fields.TShirtSizeNames)...)
	results := make([]models.LinkedIssueSummary, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			results[i] = b.linkedSummary(gctx, key, fieldNames, catalog)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (b *Builder) linkedSummary(ctx context.Context, key string, fieldNames []string, catalog fields.Catalog) models.LinkedIssueSummary {
	issue, err := b.source.GetIssue(ctx, key, fieldNames...)
	if err != nil {
		title := TitleNetworkError
		if jira.StatusCode(err) != 0 {
			title = TitleFetchError
		}
		logging.Warn("failed to fetch linked issue", "issue", key, "error", err)
		return models.LinkedIssueSummary{
			ID:       key,
			Key:      key,
			Title:    title,
			URL:      b.browseURL(key),
			Degraded: true,
		}
	}

	f := issue.Fields
	var raw []jira.Comment
	if f.Comment != nil {
		raw = f.Comment.Comments
	}

	rationale := NoTechnicalNotes
	if len(raw) > 0 {
		rationale = ExtractRationale(raw[len(raw)-1].Body)
	}

	return models.LinkedIssueSummary{
		ID:          key,
		Key:         key,
		Title:       f.Summary,
		Status:      namedOr(f.Status, "Unknown"),
		Priority:    namedOr(f.Priority, "Medium"),
		Description: strings.TrimSpace(adf.RawToPlainText(f.Description)),
		Comments:    convertComments(raw),
		TShirtSize:  fields.Resolve(fields.TShirtSizeNames, catalog, issue.Raw),
		Rationale:   rationale,
		URL:         b.browseURL(key),
	}
}

// LinkedKeys collects related issue keys: targets of issue links that are not
// clone or duplicate relations, then sub-tasks. Keys are deduplicated and the
// list is truncated to max.
func LinkedKeys(issue *jira.Issue, max int) []string {
	seen := map[string]bool{issue.Key: true}
	var keys []string
	add := func(key string) {
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, key)
	}

	for _, link := range issue.Fields.IssueLinks {
		if IsCloneRelation(link.Type.Name) {
			logging.Debug("skipping clone relation", "issue", issue.Key, "target", link.Target(), "type", link.Type.Name)
			continue
		}
		add(link.Target())
	}
	for _, sub := range issue.Fields.Subtasks {
		add(sub.Key)
	}

	if len(keys) > max {
		keys = keys[:max]
	}
	return keys
}

// IsCloneRelation reports whether a link type only records that one issue was
// cloned from, or duplicates, another.
func IsCloneRelation(linkType string) bool {
	lower := strings.ToLower(linkType)
	return strings.Contains(lower, "clone") || strings.Contains(lower, "duplicate")
}

// ExtractRationale summarizes a comment body: its first two non-empty lines
// joined by a space, with "..." appended when more lines followed.
func ExtractRationale(body json.RawMessage) string {
	var lines []string
	for _, line := range strings.Split(adf.RawToPlainText(body), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) <= 2 {
		return strings.Join(lines, " ")
	}
	return strings.Join(lines[:2], " ") + "..."
}

// CleanDescription trims a flattened description and maps Jira's empty
// description placeholders to the empty string.
func CleanDescription(text string) string {
	text = strings.TrimSpace(text)
	if text == "_No description provided_" || descriptionPlaceholder.MatchString(text) {
		return ""
	}
	return text
}

// convertComments flattens raw comments and reverses them to newest first.
func convertComments(raw []jira.Comment) []models.Comment {
	if len(raw) == 0 {
		return nil
	}

	comments := make([]models.Comment, len(raw))
	for i, c := range raw {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("comment-%d", i)
		}
		comments[len(raw)-1-i] = models.Comment{
			ID:        id,
			Author:    userOr(c.Author, "Unknown User"),
			Body:      strings.TrimSpace(adf.RawToPlainText(c.Body)),
			Timestamp: c.Created,
		}
	}
	return comments
}

func sprints(catalog fields.Catalog, values map[string]any) []string {
	for _, name := range fields.SprintNames {
		if id, ok := catalog.Lookup(name); ok {
			return fields.Normalize(values[id]).Names()
		}
	}
	return nil
}

func namedOr(f *jira.NamedField, fallback string) string {
	if f == nil || f.Name == "" {
		return fallback
	}
	return f.Name
}

func userOr(u *jira.UserField, fallback string) string {
	if u == nil || u.DisplayName == "" {
		return fallback
	}
	return u.DisplayName
}
