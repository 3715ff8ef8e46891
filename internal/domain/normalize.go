package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// zonelessLayouts are accepted when a feed timestamp omits its offset.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseEventTime parses a feed timestamp and returns it in UTC.
// RFC 3339 values are converted from their offset; values without a zone
// are read as UTC.
func ParseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty time", ErrValidation)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unsupported time %q", ErrValidation, s)
}

// Stores keep nanosecond Unix timestamps, which only cover this range.
var (
	earliestStorable = time.Unix(0, math.MinInt64).UTC()
	latestStorable   = time.Unix(0, math.MaxInt64).UTC()
)

// CheckStorable rejects events that cannot be keyed for storage.
func CheckStorable(e Event) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: event has no publicID", ErrConstraintViolation)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: event %s has no time", ErrConstraintViolation, e.ID)
	}
	if e.OccurredAt.Before(earliestStorable) || e.OccurredAt.After(latestStorable) {
		return fmt.Errorf("%w: event %s time %s out of range", ErrConstraintViolation, e.ID, e.OccurredAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// CheckBatch applies CheckStorable to every event and reports the first failure.
func CheckBatch(events []Event) error {
	for i := range events {
		if err := CheckStorable(events[i]); err != nil {
			return err
		}
	}
	return nil
}

// DistinctIDs counts the records a batch resolves to once repeated IDs
// collapse into their last occurrence.
func DistinctIDs(events []Event) int {
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		seen[e.ID] = struct{}{}
	}
	return len(seen)
}
