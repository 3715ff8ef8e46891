package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Enricher fills missing localities by reverse geocoding event coordinates.
type Enricher struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewEnricher creates an Enricher. A nil geocoder makes Enrich a no-op.
func NewEnricher(geocoder domain.Geocoder, logger *slog.Logger) *Enricher {
	return &Enricher{
		geocoder: geocoder,
		logger:   logger,
	}
}

// Enrich returns a copy of events with empty localities filled where the
// geocoder can resolve them.
func (e *Enricher) Enrich(ctx context.Context, events []domain.Event) []domain.Event {
	out := make([]domain.Event, len(events))
	for i, ev := range events {
		out[i] = domain.FillLocality(ctx, ev, e.geocoder, e.logger)
	}
	return out
}
