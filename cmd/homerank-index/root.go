package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"homerank/internal/app"
	"homerank/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "homerank-index",
	Short:         "Build and query homerank index artifacts",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// openApp loads configuration and the default catalog. Logs go to stderr so
// query output on stdout stays clean.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)
	return app.New(commandContext(cmd), cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
