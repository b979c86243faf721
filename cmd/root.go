// Package cmd wires the CLI surface: serve, migrate, and version.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/voyago/voyago/internal/log"
)

var (
	flagDebug    bool
	flagJSONLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "voyago",
	Short: "voyago - persona-driven travel conversation backend",
	Long: `voyago serves a persona-driven conversational API backed by the
Gemini API and a PostgreSQL turn log. Sessions, titles, and history are
all derived from the append-only log.

Run "voyago serve" to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "log in JSON format")
}

// newLogger builds the process logger from the global flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSONLogs})
}
