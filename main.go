// Package main is the entry point for the jiradocs CLI application.
package main

import (
	"os"

	"github.com/danielolaszy/jiradocs/cmd"
	"github.com/danielolaszy/jiradocs/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logging.Debug("starting jiradocs", "version", version, "log_level", logging.LevelFromEnv())

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
