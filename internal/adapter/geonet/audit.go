package geonet

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Issue describes one feature that would be rejected by Fetch.
type Issue struct {
	Index int
	Err   error
}

func (i Issue) String() string {
	return fmt.Sprintf("feature %d: %v", i.Index, i.Err)
}

// Audit decodes a captured feed body and checks every feature instead of
// stopping at the first invalid one. It returns the events that would be
// accepted and the issues for the rest.
func Audit(body []byte) ([]domain.Event, []Issue, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: decode feed: %v", domain.ErrFetch, err)
	}

	var (
		events []domain.Event
		issues []Issue
	)
	for i, f := range env.Features {
		event, err := f.toEvent()
		if err != nil {
			issues = append(issues, Issue{Index: i, Err: err})
			continue
		}
		events = append(events, event)
	}
	return events, issues, nil
}
