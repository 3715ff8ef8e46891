package domain

import (
	"fmt"
	"math"
	"time"
)

// Validate rejects filters that cannot describe a lookback window.
func (f Filter) Validate() error {
	if f.LookbackHours < 0 {
		return fmt.Errorf("%w: time_range_hours must be >= 0, got %d", ErrValidation, f.LookbackHours)
	}
	return nil
}

// maxLookbackHours is the longest window a time.Duration can express.
const maxLookbackHours = math.MaxInt64 / int64(time.Hour)

// Since returns the inclusive lower time bound of the lookback window.
// Windows too long for a time.Duration have no lower bound.
func (f Filter) Since(now time.Time) time.Time {
	if int64(f.LookbackHours) > maxLookbackHours {
		return time.Time{}
	}
	return now.UTC().Add(-time.Duration(f.LookbackHours) * time.Hour)
}

// Matches reports whether e passes all three bounds relative to since.
func (f Filter) Matches(e Event, since time.Time) bool {
	return e.Magnitude >= f.MinMagnitude &&
		e.DepthKm <= f.MaxDepthKm &&
		!e.OccurredAt.Before(since)
}

// FilterEvents returns the events that pass f, preserving input order.
// now is evaluated once so a single call is internally consistent.
func FilterEvents(events []Event, f Filter, now time.Time) []Event {
	since := f.Since(now)
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if f.Matches(e, since) {
			out = append(out, e)
		}
	}
	return out
}

// Summarize derives the dashboard counters for events. Among events sharing
// the latest timestamp, the first in input order is reported as most recent.
func Summarize(events []Event) Summary {
	if len(events) == 0 {
		return Summary{}
	}

	maxMag := events[0].Magnitude
	latest := events[0]
	for _, e := range events[1:] {
		if e.Magnitude > maxMag {
			maxMag = e.Magnitude
		}
		if e.OccurredAt.After(latest.OccurredAt) {
			latest = e
		}
	}

	return Summary{
		Count:        len(events),
		MaxMagnitude: &maxMag,
		MostRecent: &MostRecent{
			OccurredAt: latest.OccurredAt.UTC(),
			Locality:   latest.Locality,
		},
	}
}
