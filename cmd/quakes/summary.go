package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

// breakdown counts filtered events per severity class and depth band.
type breakdown struct {
	Summary    domain.Summary           `json:"summary"`
	Severity   map[domain.Severity]int  `json:"severity"`
	DepthBands map[domain.DepthBand]int `json:"depth_bands"`
}

func newSummaryCommand(opts *rootOptions) *cobra.Command {
	f := query.DefaultFilter()

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print dashboard counters for the stored events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := loadApp(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Query.Query(cmd.Context(), f)
			if err != nil {
				return err
			}
			b := buildBreakdown(res)

			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), b)
			}
			return printBreakdown(cmd.OutOrStdout(), f, b)
		},
	}

	cmd.Flags().Float64Var(&f.MinMagnitude, "min-magnitude", f.MinMagnitude, "minimum magnitude (inclusive)")
	cmd.Flags().Float64Var(&f.MaxDepthKm, "max-depth", f.MaxDepthKm, "maximum depth in km (inclusive)")
	cmd.Flags().IntVar(&f.LookbackHours, "hours", f.LookbackHours, "lookback window in hours")

	return cmd
}

func buildBreakdown(res query.Result) breakdown {
	b := breakdown{
		Summary:    res.Summary,
		Severity:   make(map[domain.Severity]int),
		DepthBands: make(map[domain.DepthBand]int),
	}
	for _, e := range res.Events {
		b.Severity[domain.Classify(e.Magnitude)]++
		b.DepthBands[domain.DepthBandFor(e.DepthKm)]++
	}
	return b
}

func printBreakdown(w io.Writer, f domain.Filter, b breakdown) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "filter\tmag >= %.1f, depth <= %.0f km, last %d h\n", f.MinMagnitude, f.MaxDepthKm, f.LookbackHours)
	fmt.Fprintf(tw, "count\t%d\n", b.Summary.Count)
	if b.Summary.MaxMagnitude != nil {
		fmt.Fprintf(tw, "max magnitude\t%.1f\n", *b.Summary.MaxMagnitude)
	} else {
		fmt.Fprintln(tw, "max magnitude\t-")
	}
	if mr := b.Summary.MostRecent; mr != nil {
		fmt.Fprintf(tw, "most recent\t%s  %s\n", mr.OccurredAt.Format(time.RFC3339), mr.Locality)
	} else {
		fmt.Fprintln(tw, "most recent\t-")
	}
	for _, s := range []domain.Severity{domain.SeverityMinor, domain.SeverityMinimalRisk, domain.SeverityAlert} {
		fmt.Fprintf(tw, "severity %s\t%d\n", s, b.Severity[s])
	}
	for _, d := range []domain.DepthBand{domain.DepthShallow, domain.DepthIntermediate, domain.DepthDeep, domain.DepthVeryDeep} {
		fmt.Fprintf(tw, "depth %s\t%d\n", d, b.DepthBands[d])
	}
	return tw.Flush()
}
