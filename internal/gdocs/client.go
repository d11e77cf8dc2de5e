// Package gdocs provides the Google Docs destination: reading a document's
// paragraph structure, applying edit batches, and creating or finding
// documents through Drive.
package gdocs

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/danielolaszy/jiradocs/internal/config"
	"github.com/danielolaszy/jiradocs/internal/docsync"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	documentMimeType = "application/vnd.google-apps.document"
	headingPrefix    = "HEADING_"

	// listPageSize is the number of files requested per Drive page
	listPageSize = 100
)

// DocRef identifies a Google Doc.
type DocRef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Endpoints overrides the API base URLs, mainly for tests.
type Endpoints struct {
	Docs  string
	Drive string
}

// Client wraps the Docs and Drive services.
type Client struct {
	docs  *docs.Service
	drive *drive.Service
}

// NewClient creates a client authenticated with the configured access token
// or service account credentials file.
func NewClient(ctx context.Context, cfg config.GoogleConfig) (*Client, error) {
	ts, err := TokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithOptions(ctx, Endpoints{}, option.WithTokenSource(ts))
}

// NewClientWithOptions creates a client from explicit client options.
func NewClientWithOptions(ctx context.Context, endpoints Endpoints, opts ...option.ClientOption) (*Client, error) {
	docsOpts := slices.Clone(opts)
	if endpoints.Docs != "" {
		docsOpts = append(docsOpts, option.WithEndpoint(endpoints.Docs))
	}
	docsService, err := docs.NewService(ctx, docsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	driveOpts := slices.Clone(opts)
	if endpoints.Drive != "" {
		driveOpts = append(driveOpts, option.WithEndpoint(endpoints.Drive))
	}
	driveService, err := drive.NewService(ctx, driveOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &Client{docs: docsService, drive: driveService}, nil
}

// TokenSource returns a static source for an access token, or one backed by
// a service account credentials file.
func TokenSource(ctx context.Context, cfg config.GoogleConfig) (oauth2.TokenSource, error) {
	if cfg.AccessToken != "" {
		logging.Debug("using google access token", "token", logging.MaskSensitive(cfg.AccessToken))
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken}), nil
	}

	if cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("google credentials not configured")
	}

	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read google credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, docs.DocumentsScope, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}

	logging.Debug("using google credentials file", "path", cfg.CredentialsFile)
	return creds.TokenSource, nil
}

// GetStructure fetches docID and returns its body paragraphs.
func (c *Client) GetStructure(ctx context.Context, docID string) (docsync.Structure, error) {
	doc, err := c.docs.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return docsync.Structure{}, fmt.Errorf("failed to fetch doc %s: %w", docID, err)
	}

	structure := ToStructure(doc)
	logging.Debug("fetched document structure", "doc", docID, "blocks", len(structure.Blocks))
	return structure, nil
}

// ApplyEdits sends ops as a single batchUpdate, which Docs applies
// atomically.
func (c *Client) ApplyEdits(ctx context.Context, docID string, ops []docsync.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	req := &docs.BatchUpdateDocumentRequest{Requests: ToRequests(ops)}
	if _, err := c.docs.Documents.BatchUpdate(docID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update doc %s: %w", docID, err)
	}

	logging.Debug("applied document edits", "doc", docID, "requests", len(req.Requests))
	return nil
}

// CreateDocument creates a document and, when folderID is set, moves it
// into that Drive folder.
func (c *Client) CreateDocument(ctx context.Context, title, folderID string) (DocRef, error) {
	doc, err := c.docs.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return DocRef{}, fmt.Errorf("failed to create doc: %w", err)
	}
	ref := DocRef{ID: doc.DocumentId, Name: doc.Title}

	if folderID != "" {
		if err := c.moveToFolder(ctx, ref.ID, folderID); err != nil {
			return ref, err
		}
	}

	logging.Info("created document", "doc", ref.ID, "title", title, "folder", folderID)
	return ref, nil
}

func (c *Client) moveToFolder(ctx context.Context, fileID, folderID string) error {
	file, err := c.drive.Files.Get(fileID).Fields("parents").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read parents of %s: %w", fileID, err)
	}

	_, err = c.drive.Files.Update(fileID, &drive.File{}).
		AddParents(folderID).
		RemoveParents(strings.Join(file.Parents, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to move %s to folder %s: %w", fileID, folderID, err)
	}
	return nil
}

// ListDocuments lists Google Docs visible to the caller, most recently
// modified first, reading every result page. A non-empty query restricts the
// list to names containing it.
func (c *Client) ListDocuments(ctx context.Context, query string) ([]DocRef, error) {
	q := fmt.Sprintf("mimeType='%s' and trashed=false", documentMimeType)
	if query != "" {
		q += fmt.Sprintf(" and name contains '%s'", escapeQuery(query))
	}

	call := c.drive.Files.List().
		Q(q).
		OrderBy("modifiedTime desc").
		PageSize(listPageSize).
		Fields("nextPageToken", "files(id,name)")

	var refs []DocRef
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			refs = append(refs, DocRef{ID: f.Id, Name: f.Name})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list docs: %w", err)
	}

	logging.Debug("listed documents", "query", query, "count", len(refs))
	return refs, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// ToStructure converts a Docs document body into blocks. Non-paragraph
// elements keep their offsets but carry no text.
func ToStructure(doc *docs.Document) docsync.Structure {
	if doc == nil || doc.Body == nil {
		return docsync.Structure{}
	}

	blocks := make([]docsync.Block, 0, len(doc.Body.Content))
	for _, el := range doc.Body.Content {
		block := docsync.Block{StartIndex: el.StartIndex, EndIndex: el.EndIndex}
		if p := el.Paragraph; p != nil {
			if p.ParagraphStyle != nil {
				block.HeadingLevel = headingLevel(p.ParagraphStyle.NamedStyleType)
			}
			for _, pe := range p.Elements {
				if pe.TextRun != nil {
					block.Runs = append(block.Runs, pe.TextRun.Content)
				}
			}
		}
		blocks = append(blocks, block)
	}
	return docsync.Structure{Blocks: blocks}
}

func headingLevel(style string) int {
	if !strings.HasPrefix(style, headingPrefix) {
		return 0
	}
	level, err := strconv.Atoi(strings.TrimPrefix(style, headingPrefix))
	if err != nil {
		return 0
	}
	return level
}

// ToRequests converts edit operations into Docs batchUpdate requests.
func ToRequests(ops []docsync.Operation) []*docs.Request {
	requests := make([]*docs.Request, 0, len(ops))
	for _, op := range ops {
		switch o := op.(type) {
		case docsync.DeleteRange:
			requests = append(requests, &docs.Request{
				DeleteContentRange: &docs.DeleteContentRangeRequest{
					Range: &docs.Range{StartIndex: o.Start, EndIndex: o.End},
				},
			})
		case docsync.InsertText:
			requests = append(requests, &docs.Request{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: o.Index},
					Text:     o.Text,
				},
			})
		case docsync.SetParagraphStyle:
			requests = append(requests, &docs.Request{
				UpdateParagraphStyle: &docs.UpdateParagraphStyleRequest{
					Range:          &docs.Range{StartIndex: o.Start, EndIndex: o.End},
					ParagraphStyle: &docs.ParagraphStyle{NamedStyleType: string(o.Style)},
					Fields:         "namedStyleType",
				},
			})
		}
	}
	return requests
}
