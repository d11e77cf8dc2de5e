package cmd

import (
	"fmt"

	"github.com/danielolaszy/jiradocs/internal/bulk"
	"github.com/danielolaszy/jiradocs/internal/config"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync ISSUE-KEY",
		Short: "Write one Jira issue into a Google Doc",
		Long: `Write one Jira issue as a section of a Google Doc.

If the document already has a section for the issue (a heading starting with
the issue key) that section is replaced, otherwise the section is appended.
Other sections are left untouched.

The first sync with --doc remembers the document, later syncs of the same
issue can omit it.

Example:
  jiradocs sync PROJ-123 --doc 1AbCdEf`,
		Args: cobra.ExactArgs(1),
		RunE: runSync,
	}

	syncCmd.Flags().StringP("doc", "d", "", "Google Doc ID to write to")
	return syncCmd
}

func runSync(cmd *cobra.Command, args []string) error {
	key := args[0]
	docFlag, err := cmd.Flags().GetString("doc")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	links, closeLinks, err := openLinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLinks()

	doc, err := resolveDocument(ctx, links, key, docFlag)
	if err != nil {
		return err
	}

	builder, _, err := newRecordBuilder(cfg)
	if err != nil {
		return err
	}
	docs, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}
	syncer, err := newSynchronizer(cfg, docs)
	if err != nil {
		return err
	}

	rec, err := builder.Build(ctx, key)
	if err != nil {
		return err
	}

	logging.Info("syncing issue", "issue", key, "doc", doc.ID)
	if err := syncer.SyncSingle(ctx, doc.ID, rec); err != nil {
		return err
	}
	rememberSync(ctx, links, key, doc, docFlag != "")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Synced %s to document %s\n", key, doc.ID)
	if rec.IsEpic() {
		fmt.Fprintf(out, "%s is an epic, run 'jiradocs sync-epic %s --doc %s' to include its child issues\n", key, key, doc.ID)
	}
	return nil
}

func newSyncEpicCmd() *cobra.Command {
	syncEpicCmd := &cobra.Command{
		Use:   "sync-epic EPIC-KEY",
		Short: "Rewrite a Google Doc with an epic and all of its child issues",
		Long: `Rewrite a Google Doc with an epic followed by its child issues.

Children are discovered by parent and legacy Epic Link and written in
creation order. Issues are fetched one by one with a pause in between
(JIRADOCS_BULK_DELAY). If any fetch fails the command stops before the
document is changed. On success the whole document is replaced.

Example:
  jiradocs sync-epic PROJ-100 --doc 1AbCdEf`,
		Args: cobra.ExactArgs(1),
		RunE: runSyncEpic,
	}

	syncEpicCmd.Flags().StringP("doc", "d", "", "Google Doc ID to rewrite")
	return syncEpicCmd
}

func runSyncEpic(cmd *cobra.Command, args []string) error {
	key := args[0]
	docFlag, err := cmd.Flags().GetString("doc")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	links, closeLinks, err := openLinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLinks()

	doc, err := resolveDocument(ctx, links, key, docFlag)
	if err != nil {
		return err
	}

	builder, finder, err := newRecordBuilder(cfg)
	if err != nil {
		return err
	}
	docs, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}
	syncer, err := newSynchronizer(cfg, docs)
	if err != nil {
		return err
	}

	progressOut := cmd.ErrOrStderr()
	orchestrator := bulk.NewOrchestrator(builder, finder, syncer, bulk.Options{
		Delay:       cfg.Sync.BulkDelay,
		MaxChildren: cfg.Sync.MaxChildIssues,
		Progress: func(p bulk.Progress) {
			fmt.Fprintf(progressOut, "[%3.0f%%] %s (%d/%d)\n", p.Fraction()*100, p.Key, p.Current, p.Total)
		},
	})

	result, err := orchestrator.SyncEpicAndChildren(ctx, doc.ID, key)
	if err != nil {
		return err
	}
	rememberSync(ctx, links, key, doc, docFlag != "")

	fmt.Fprintf(cmd.OutOrStdout(), "Synced %s and %d child issues to document %s\n", key, result.Count-1, doc.ID)
	return nil
}
