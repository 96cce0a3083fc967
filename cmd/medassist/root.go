package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"medassist/apps/backend/internal/config"
	"medassist/apps/backend/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "medassist",
		Short: "Operator tools for the MedAssist consultation backend",
		Long: `Operator tools for the MedAssist consultation backend.

  medassist extract reply.txt         # Recover a structured answer from raw model text
  medassist chat                      # Run a consultation in the terminal
  medassist history <session-id>      # Show archived turns of a session`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newExtractCmd(), newChatCmd(opts), newHistoryCmd(opts))
	return root
}

// loadConfig reads the same environment as the API server.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) logger(w io.Writer, cfg config.Config) *slog.Logger {
	level := cfg.LogLevel
	if o.verbose {
		level = "debug"
	}
	return logging.New(w, level, "text")
}
