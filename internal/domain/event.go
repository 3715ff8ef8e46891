package domain

import "time"

// Event is one seismic observation after validation at the feed boundary.
type Event struct {
	ID         string    `json:"publicID"`
	OccurredAt time.Time `json:"time"`
	Magnitude  float64   `json:"magnitude"`
	DepthKm    float64   `json:"depth"`
	Locality   string    `json:"locality"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
}

// Filter selects events for a dashboard view. All bounds are inclusive.
type Filter struct {
	MinMagnitude  float64 `json:"min_magnitude"`
	MaxDepthKm    float64 `json:"max_depth"`
	LookbackHours int     `json:"time_range_hours"`
}

// MostRecent identifies the latest event in a filtered set.
type MostRecent struct {
	OccurredAt time.Time `json:"time"`
	Locality   string    `json:"locality"`
}

// Summary holds the dashboard counters. MaxMagnitude and MostRecent are nil
// when the summarized set is empty.
type Summary struct {
	Count        int         `json:"count"`
	MaxMagnitude *float64    `json:"max_magnitude"`
	MostRecent   *MostRecent `json:"most_recent"`
}

// IngestReport describes the outcome of one ingestion run.
type IngestReport struct {
	RunID   string `json:"run_id"`
	Fetched int    `json:"fetched"`
	Written int    `json:"written"`
}

// Batch is the set of events written by one ingestion run, as handed to
// downstream sinks.
type Batch struct {
	RunID     string    `json:"run_id"`
	WrittenAt time.Time `json:"written_at"`
	Events    []Event   `json:"events"`
}
