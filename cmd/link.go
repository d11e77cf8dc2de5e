package cmd

import (
	"fmt"
	"time"

	"github.com/danielolaszy/jiradocs/internal/linkstore"
	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	linkCmd := &cobra.Command{
		Use:   "link",
		Short: "Manage which Google Doc an issue syncs to",
	}

	showCmd := &cobra.Command{
		Use:   "show ISSUE-KEY",
		Short: "Show the linked document and last sync time of an issue",
		Args:  cobra.ExactArgs(1),
		RunE:  runLinkShow,
	}

	setCmd := &cobra.Command{
		Use:   "set ISSUE-KEY DOC-ID",
		Short: "Link an issue to a document",
		Args:  cobra.ExactArgs(2),
		RunE:  runLinkSet,
	}
	setCmd.Flags().String("name", "", "document name to remember")

	clearCmd := &cobra.Command{
		Use:   "clear ISSUE-KEY",
		Short: "Forget the linked document and last sync time of an issue",
		Args:  cobra.ExactArgs(1),
		RunE:  runLinkClear,
	}

	linkCmd.AddCommand(showCmd, setCmd, clearCmd)
	return linkCmd
}

func withLinks(cmd *cobra.Command, fn func(links *linkstore.Links) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	links, closeLinks, err := openLinks(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeLinks()

	return fn(links)
}

func runLinkShow(cmd *cobra.Command, args []string) error {
	key := args[0]
	return withLinks(cmd, func(links *linkstore.Links) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		doc, found, err := links.DocFor(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(out, "%s is not linked to a document\n", key)
			return nil
		}

		if doc.Name != "" {
			fmt.Fprintf(out, "%s -> %s (%s)\n", key, doc.ID, doc.Name)
		} else {
			fmt.Fprintf(out, "%s -> %s\n", key, doc.ID)
		}

		last, synced, err := links.LastSync(ctx, key)
		if err != nil {
			return err
		}
		if synced {
			fmt.Fprintf(out, "Last synced: %s\n", last.Local().Format(time.RFC1123))
		} else {
			fmt.Fprintln(out, "Last synced: never")
		}
		return nil
	})
}

func runLinkSet(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	key, docID := args[0], args[1]
	return withLinks(cmd, func(links *linkstore.Links) error {
		if err := links.Link(cmd.Context(), key, linkstore.DocLink{ID: docID, Name: name}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to document %s\n", key, docID)
		return nil
	})
}

func runLinkClear(cmd *cobra.Command, args []string) error {
	key := args[0]
	return withLinks(cmd, func(links *linkstore.Links) error {
		if err := links.Unlink(cmd.Context(), key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Unlinked %s\n", key)
		return nil
	})
}
