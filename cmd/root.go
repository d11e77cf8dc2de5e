// Package cmd provides the command-line interface for jiradocs.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/danielolaszy/jiradocs/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the jiradocs command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jiradocs",
		Short: "jiradocs writes Jira issues into Google Docs",
		Long: `jiradocs is a CLI tool that extracts Jira issues, together with their
comments, custom fields and linked issues, and writes them as formatted
sections into Google Docs.

Configuration is read from environment variables (JIRA_URL, JIRA_USERNAME,
JIRA_TOKEN, GOOGLE_ACCESS_TOKEN or GOOGLE_CREDENTIALS_FILE, ...) and,
optionally, from a YAML file passed with --config.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json), overrides LOG_FORMAT")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newSyncEpicCmd())
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newLinkCmd())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}

// setupLogging reconfigures the logger when --log-level or --log-format is
// given.
func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return err
	}
	if level == "" && format == "" {
		return nil
	}

	if level == "" {
		level = string(logging.LevelFromEnv())
	}
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	logging.SetupLoggerWithFormat(cmd.ErrOrStderr(), logging.LogLevel(level), logging.Format(strings.ToLower(format)))
	logging.Debug("logger configured", "level", level, "format", format)
	return nil
}
