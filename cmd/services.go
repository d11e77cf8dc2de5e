package cmd

import (
	"context"
	"fmt"

	"github.com/danielolaszy/jiradocs/internal/bulk"
	"github.com/danielolaszy/jiradocs/internal/config"
	"github.com/danielolaszy/jiradocs/internal/docsync"
	"github.com/danielolaszy/jiradocs/internal/gdocs"
	"github.com/danielolaszy/jiradocs/internal/jira"
	"github.com/danielolaszy/jiradocs/internal/linkstore"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/internal/record"
	"github.com/spf13/cobra"
)

// jiraService is everything the commands need from Jira.
type jiraService interface {
	record.Source
	bulk.ChildFinder
}

// docsService is everything the commands need from Google Docs and Drive.
type docsService interface {
	docsync.Document
	CreateDocument(ctx context.Context, title, folderID string) (gdocs.DocRef, error)
	ListDocuments(ctx context.Context, query string) ([]gdocs.DocRef, error)
}

// Constructors for external services, replaced in tests.
var (
	newJiraService = func(cfg config.JiraConfig) (jiraService, error) {
		client, err := jira.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	newDocsService = func(ctx context.Context, cfg config.GoogleConfig) (docsService, error) {
		client, err := gdocs.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
)

// loadConfig reads configuration using the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newRecordBuilder connects to Jira and returns a record builder on top of it.
func newRecordBuilder(cfg *config.Config) (*record.Builder, jiraService, error) {
	source, err := newJiraService(cfg.Jira)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize jira client: %w", err)
	}

	builder := record.NewBuilder(source, record.Options{
		BaseURL:   cfg.Jira.URL,
		MaxLinked: cfg.Sync.MaxLinkedIssues,
	})
	return builder, source, nil
}

// newDocs connects to Google Docs after checking credentials are configured.
func newDocs(ctx context.Context, cfg *config.Config) (docsService, error) {
	if err := config.ValidateGoogleConfig(cfg); err != nil {
		return nil, err
	}

	docs, err := newDocsService(ctx, cfg.Google)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize google docs client: %w", err)
	}
	return docs, nil
}

// newSynchronizer returns a synchronizer writing through docs with the
// configured timezone.
func newSynchronizer(cfg *config.Config, docs docsService) (*docsync.Synchronizer, error) {
	loc, err := cfg.Sync.Location()
	if err != nil {
		return nil, err
	}
	renderer := docsync.NewRenderer(loc, cfg.Sync.SuppressCoSyncedRationale)
	return docsync.NewSynchronizer(docs, renderer), nil
}

// openLinks opens the configured link store. The returned func closes it.
func openLinks(ctx context.Context, cfg *config.Config) (*linkstore.Links, func(), error) {
	store, err := linkstore.Open(ctx, cfg.LinkStore)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open link store: %w", err)
	}

	closeStore := func() {
		if err := store.Close(); err != nil {
			logging.Warn("failed to close link store", "error", err)
		}
	}
	return linkstore.NewLinks(store), closeStore, nil
}

// resolveDocument returns the document given with --doc or, without it, the
// one stored for issueKey.
func resolveDocument(ctx context.Context, links *linkstore.Links, issueKey, docFlag string) (linkstore.DocLink, error) {
	if docFlag != "" {
		return linkstore.DocLink{ID: docFlag}, nil
	}

	doc, found, err := links.DocFor(ctx, issueKey)
	if err != nil {
		return linkstore.DocLink{}, fmt.Errorf("failed to read document link for %s: %w", issueKey, err)
	}
	if !found {
		return linkstore.DocLink{}, fmt.Errorf("no document linked to %s, pass --doc", issueKey)
	}

	logging.Debug("using linked document", "issue", issueKey, "doc", doc.ID)
	return doc, nil
}

// rememberSync stores the link for an explicit --doc and the sync time.
// Failures are logged because the document has already been written.
func rememberSync(ctx context.Context, links *linkstore.Links, issueKey string, doc linkstore.DocLink, explicit bool) {
	if explicit {
		if err := links.Link(ctx, issueKey, doc); err != nil {
			logging.Warn("failed to store document link", "issue", issueKey, "doc", doc.ID, "error", err)
		}
	}
	if err := links.RecordSync(ctx, issueKey); err != nil {
		logging.Warn("failed to store last sync time", "issue", issueKey, "error", err)
	}
}
