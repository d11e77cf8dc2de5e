package cmd

import (
	"fmt"

	"github.com/danielolaszy/jiradocs/internal/linkstore"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/spf13/cobra"
)

func newDocsCmd() *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Create and list Google Docs",
	}

	createCmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create an empty Google Doc",
		Long: `Create an empty Google Doc, optionally inside a Drive folder.

With --link the new document is remembered as the target of an issue, so
'jiradocs sync ISSUE-KEY' works without --doc.

Example:
  jiradocs docs create "PROJ-100 design notes" --folder 0BxFolder --link PROJ-100`,
		Args: cobra.ExactArgs(1),
		RunE: runDocsCreate,
	}
	createCmd.Flags().String("folder", "", "Drive folder ID to create the document in")
	createCmd.Flags().String("link", "", "issue key to link the new document to")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List Google Docs, most recently modified first",
		Args:  cobra.NoArgs,
		RunE:  runDocsList,
	}
	listCmd.Flags().StringP("query", "q", "", "only list documents whose name contains this text")

	docsCmd.AddCommand(createCmd, listCmd)
	return docsCmd
}

func runDocsCreate(cmd *cobra.Command, args []string) error {
	folder, err := cmd.Flags().GetString("folder")
	if err != nil {
		return err
	}
	linkKey, err := cmd.Flags().GetString("link")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	docs, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}

	ref, err := docs.CreateDocument(ctx, args[0], folder)
	if err != nil {
		return err
	}
	logging.Debug("document ready", "doc", ref.ID, "name", ref.Name, "link", linkKey)

	if linkKey != "" {
		links, closeLinks, err := openLinks(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeLinks()

		if err := links.Link(ctx, linkKey, linkstore.DocLink{ID: ref.ID, Name: ref.Name}); err != nil {
			return fmt.Errorf("created document %s but failed to link it to %s: %w", ref.ID, linkKey, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created document %q (%s)\n", ref.Name, ref.ID)
	return nil
}

func runDocsList(cmd *cobra.Command, args []string) error {
	query, err := cmd.Flags().GetString("query")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	docs, err := newDocs(ctx, cfg)
	if err != nil {
		return err
	}

	refs, err := docs.ListDocuments(ctx, query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(refs) == 0 {
		fmt.Fprintln(out, "No documents found")
		return nil
	}
	for _, ref := range refs {
		fmt.Fprintf(out, "%s\t%s\n", ref.ID, ref.Name)
	}
	return nil
}
