// Package page recognizes Jira issue pages and extracts the issue they show.
package page

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/pkg/models"
	"golang.org/x/net/html"
)

// BreadcrumbTestID marks the breadcrumb container holding the current issue
// key on Jira Cloud issue views.
const BreadcrumbTestID = "issue.views.issue-base.foundation.breadcrumbs.breadcrumb-current-issue-container"

var (
	issuePagePattern = regexp.MustCompile(`atlassian\.net/(browse/|jira/software/.*(selectedIssue=|issues/))`)
	urlKeyPatterns   = []*regexp.Regexp{
		regexp.MustCompile(`browse/([A-Z][A-Z0-9_]*-\d+)`),
		regexp.MustCompile(`selectedIssue=([A-Z][A-Z0-9_]*-\d+)`),
		regexp.MustCompile(`issues/([A-Z][A-Z0-9_]*-\d+)`),
	}
	issueKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-\d+$`)
)

// PageContext is a point-in-time snapshot of a browser page.
type PageContext struct {
	URL  string
	HTML string
}

// ExtractionError reports a page that is not a supported issue page or whose
// issue key cannot be determined.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract issue from %s: %s", e.URL, e.Reason)
}

// CanParse reports whether url looks like a Jira Cloud issue page.
func CanParse(rawURL string) bool {
	return issuePagePattern.MatchString(rawURL)
}

// KeyFromURL extracts the issue key from an issue page URL.
func KeyFromURL(rawURL string) string {
	for _, p := range urlKeyPatterns {
		if m := p.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// KeyFromHTML reads the issue key from the breadcrumb of an HTML snapshot.
func KeyFromHTML(snapshot string) string {
	if snapshot == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		logging.Debug("failed to parse page snapshot", "error", err)
		return ""
	}

	container := findByAttr(doc, "data-testid", BreadcrumbTestID)
	if container == nil {
		return ""
	}
	anchor := findByTag(container, "a")
	if anchor == nil {
		return ""
	}

	key := strings.TrimSpace(innerText(anchor))
	if !issueKeyPattern.MatchString(key) {
		return ""
	}
	return key
}

// ResolveKey determines the issue shown by pc, preferring the URL and
// falling back to the page's breadcrumb.
func ResolveKey(pc PageContext) (string, error) {
	if !CanParse(pc.URL) {
		return "", &ExtractionError{URL: pc.URL, Reason: "not a supported Jira issue page"}
	}
	if key := KeyFromURL(pc.URL); key != "" {
		return key, nil
	}
	if key := KeyFromHTML(pc.HTML); key != "" {
		logging.Debug("resolved issue key from breadcrumb", "issue", key)
		return key, nil
	}
	return "", &ExtractionError{URL: pc.URL, Reason: "could not determine issue key"}
}

// BaseURL returns the scheme and host of a page URL.
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", &ExtractionError{URL: rawURL, Reason: "invalid page URL"}
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// Builder builds a record for an issue key.
type Builder interface {
	Build(ctx context.Context, key string) (*models.IssueRecord, error)
}

// Extractor turns page snapshots into issue records.
type Extractor struct {
	builder Builder
}

// NewExtractor creates an Extractor.
func NewExtractor(builder Builder) *Extractor {
	return &Extractor{builder: builder}
}

// ExtractIssue resolves the issue shown by pc and builds its record.
func (e *Extractor) ExtractIssue(ctx context.Context, pc PageContext) (*models.IssueRecord, error) {
	key, err := ResolveKey(pc)
	if err != nil {
		return nil, err
	}
	return e.builder.Build(ctx, key)
}

func findByAttr(node *html.Node, name, value string) *html.Node {
	if node.Type == html.ElementNode {
		for _, a := range node.Attr {
			if a.Key == name && a.Val == value {
				return node
			}
		}
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if found := findByAttr(c, name, value); found != nil {
			return found
		}
	}
	return nil
}

func findByTag(node *html.Node, tag string) *html.Node {
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func innerText(node *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}
