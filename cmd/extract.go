package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielolaszy/jiradocs/internal/docsync"
	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/danielolaszy/jiradocs/internal/page"
	"github.com/danielolaszy/jiradocs/pkg/models"
	"github.com/spf13/cobra"
)

// Output formats of the extract command.
const (
	formatJSON = "json"
	formatText = "text"
)

func newExtractCmd() *cobra.Command {
	extractCmd := &cobra.Command{
		Use:   "extract [ISSUE-KEY]",
		Short: "Print the normalized record of a Jira issue",
		Long: `Fetch a Jira issue and print its normalized record.

The issue is given either as a key or as the URL of its Jira page. When the
URL does not contain the key (for example a board view), a saved HTML
snapshot of the page can be passed with --html-file and the key is read from
its breadcrumb. Without JIRA_URL the instance is taken from the page URL.

Examples:
  jiradocs extract PROJ-123
  jiradocs extract --url https://acme.atlassian.net/browse/PROJ-123 --format text`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExtract,
	}

	extractCmd.Flags().String("url", "", "Jira issue page URL")
	extractCmd.Flags().String("html-file", "", "saved HTML snapshot of the issue page")
	extractCmd.Flags().StringP("format", "f", formatJSON, "output format (json, text)")

	return extractCmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	pageURL, err := cmd.Flags().GetString("url")
	if err != nil {
		return err
	}
	htmlFile, err := cmd.Flags().GetString("html-file")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}

	if format != formatJSON && format != formatText {
		return fmt.Errorf("unsupported format %q, use json or text", format)
	}
	if len(args) == 0 && pageURL == "" {
		return fmt.Errorf("an issue key or --url is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Jira.URL == "" && pageURL != "" {
		base, err := page.BaseURL(pageURL)
		if err != nil {
			return err
		}
		logging.Debug("using jira instance from page url", "url", base)
		cfg.Jira.URL = base
	}

	builder, _, err := newRecordBuilder(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var rec *models.IssueRecord
	if len(args) == 1 {
		rec, err = builder.Build(ctx, args[0])
	} else {
		pc := page.PageContext{URL: pageURL}
		if htmlFile != "" {
			data, readErr := os.ReadFile(htmlFile)
			if readErr != nil {
				return fmt.Errorf("failed to read html snapshot: %w", readErr)
			}
			pc.HTML = string(data)
		}
		rec, err = page.NewExtractor(builder).ExtractIssue(ctx, pc)
	}
	if err != nil {
		return err
	}

	logging.Info("extracted issue", "issue", rec.Key, "linked", len(rec.LinkedIssues), "comments", len(rec.Comments))
	return writeRecord(cmd.OutOrStdout(), rec, format)
}

func writeRecord(w io.Writer, rec *models.IssueRecord, format string) error {
	if format == formatText {
		_, err := fmt.Fprintln(w, docsync.FormatPlainText(rec))
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
