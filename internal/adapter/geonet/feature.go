package geonet

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// GeoNet GeoJSON response types.

type envelope struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties properties `json:"properties"`
	Geometry   geometry   `json:"geometry"`
}

// Pointers distinguish an absent property from a zero value.
type properties struct {
	PublicID  *string  `json:"publicID"`
	Time      *string  `json:"time"`
	Magnitude *float64 `json:"magnitude"`
	Depth     *float64 `json:"depth"`
	Locality  string   `json:"locality"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

// toEvent validates a feature and maps it to a domain event.
func (f feature) toEvent() (domain.Event, error) {
	p := f.Properties

	if p.PublicID == nil || strings.TrimSpace(*p.PublicID) == "" {
		return domain.Event{}, fmt.Errorf("%w: missing properties.publicID", domain.ErrValidation)
	}
	id := strings.TrimSpace(*p.PublicID)

	if p.Magnitude == nil {
		return domain.Event{}, fmt.Errorf("%w: %s: missing properties.magnitude", domain.ErrValidation, id)
	}
	if p.Depth == nil {
		return domain.Event{}, fmt.Errorf("%w: %s: missing properties.depth", domain.ErrValidation, id)
	}
	if p.Time == nil {
		return domain.Event{}, fmt.Errorf("%w: %s: missing properties.time", domain.ErrValidation, id)
	}
	occurredAt, err := domain.ParseEventTime(*p.Time)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%s: %w", id, err)
	}
	if len(f.Geometry.Coordinates) < 2 {
		return domain.Event{}, fmt.Errorf("%w: %s: geometry.coordinates needs [lon, lat]", domain.ErrValidation, id)
	}

	return domain.Event{
		ID:         id,
		OccurredAt: occurredAt,
		Magnitude:  *p.Magnitude,
		DepthKm:    *p.Depth,
		Locality:   strings.TrimSpace(p.Locality),
		Longitude:  f.Geometry.Coordinates[0],
		Latitude:   f.Geometry.Coordinates[1],
	}, nil
}
