package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/app"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

var validFormats = []string{"text", "json"}

// processMetrics registers the collectors with the default registry once per
// process.
var processMetrics = sync.OnceValue(observability.NewMetrics)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	format string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "quakes",
		Short:        "GeoNet earthquake feed ETL and dashboard API",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !slices.Contains(validFormats, opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newIngestCommand(opts))
	cmd.AddCommand(newSummaryCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))

	return cmd
}

// loadApp reads configuration from the environment and wires the service.
// One-shot commands log to stderr so stdout carries only their output.
func loadApp(ctx context.Context, logOut io.Writer) (*app.App, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLoggerTo(logOut, cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(ctx, cfg, logger, processMetrics(), nil)
	if err != nil {
		return nil, nil, err
	}
	return a, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
