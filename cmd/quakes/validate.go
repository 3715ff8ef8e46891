package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/geonet"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

var errValidationFailed = errors.New("validation failed")

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <feed.json|->",
		Short: "Audit a captured GeoNet feed response without touching the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			phases, err := validateFeed(body, time.Now())
			if err != nil {
				return err
			}
			if !reportPhases(cmd.OutOrStdout(), opts.format, phases) {
				return errValidationFailed
			}
			return nil
		},
	}
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// validateFeed runs every phase over one captured response.
func validateFeed(body []byte, now time.Time) ([]*phase, error) {
	events, issues, err := geonet.Audit(body)
	if err != nil {
		return nil, err
	}

	features := &phase{name: "features"}
	for _, is := range issues {
		features.errorf("%s", is)
	}

	identity := &phase{name: "identity"}
	seen := make(map[string]int, len(events))
	for i, e := range events {
		if j, ok := seen[e.ID]; ok {
			identity.errorf("publicID %s appears at events %d and %d", e.ID, j, i)
			continue
		}
		seen[e.ID] = i
	}

	timestamps := &phase{name: "timestamps"}
	for _, e := range events {
		if e.OccurredAt.After(now.Add(time.Hour)) {
			timestamps.errorf("%s: time %s is in the future", e.ID, e.OccurredAt.Format(time.RFC3339))
		}
	}

	ranges := &phase{name: "ranges"}
	for _, e := range events {
		if e.Latitude < -90 || e.Latitude > 90 || e.Longitude < -180 || e.Longitude > 180 {
			ranges.errorf("%s: coordinates (%.4f, %.4f) out of range", e.ID, e.Latitude, e.Longitude)
		}
		if e.DepthKm < -10 || e.DepthKm > 800 {
			ranges.errorf("%s: depth %.1f km out of range", e.ID, e.DepthKm)
		}
		if e.Magnitude < -2 || e.Magnitude > 10 {
			ranges.errorf("%s: magnitude %.1f out of range", e.ID, e.Magnitude)
		}
	}

	storable := &phase{name: "storable"}
	if err := domain.CheckBatch(events); err != nil {
		storable.errorf("%v", err)
	}

	return []*phase{features, identity, timestamps, ranges, storable}, nil
}

type phaseResult struct {
	Phase  string   `json:"phase"`
	Passed bool     `json:"passed"`
	Errors []string `json:"errors,omitempty"`
}

// reportPhases prints each phase and reports whether all passed.
func reportPhases(w io.Writer, format string, phases []*phase) bool {
	ok := true
	results := make([]phaseResult, 0, len(phases))
	for _, p := range phases {
		ok = ok && p.passed()
		results = append(results, phaseResult{Phase: p.name, Passed: p.passed(), Errors: p.errors})
	}

	if format == "json" {
		_ = printJSON(w, results)
		return ok
	}
	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(w, "%-10s %s\n", r.Phase, status)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return ok
}
