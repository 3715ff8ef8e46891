// Package query serves filtered views and summary counters over a single
// snapshot of the event store.
package query

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// EventReader returns every stored event in deterministic storage order.
type EventReader interface {
	ListAll(ctx context.Context) ([]domain.Event, error)
}

// Result is one filtered view and its summary, computed from the same snapshot.
type Result struct {
	Events  []domain.Event
	Summary domain.Summary
}

// Service answers dashboard queries. It never mutates the store.
type Service struct {
	reader EventReader
	clock  clockwork.Clock
}

// NewService creates a Service. A nil clock uses wall time.
func NewService(reader EventReader, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{reader: reader, clock: clock}
}

// DefaultFilter is applied when a caller supplies no parameters.
func DefaultFilter() domain.Filter {
	return domain.Filter{MinMagnitude: 0, MaxDepthKm: 700, LookbackHours: 24}
}

// Query validates f, reads the store once, and filters and summarizes
// relative to a single captured now.
func (s *Service) Query(ctx context.Context, f domain.Filter) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	events, err := s.reader.ListAll(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read events: %w", err)
	}

	matched := domain.FilterEvents(events, f, s.clock.Now())
	return Result{
		Events:  matched,
		Summary: domain.Summarize(matched),
	}, nil
}
