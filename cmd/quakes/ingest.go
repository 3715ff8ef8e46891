package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass against the feed and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := loadApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Pipeline.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format == "json" {
				return printJSON(out, report)
			}
			_, err = fmt.Fprintf(out, "run %s: fetched %d, written %d\n", report.RunID, report.Fetched, report.Written)
			return err
		},
	}
}
