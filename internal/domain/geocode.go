package domain

import (
	"context"
	"log/slog"
)

// FillLocality reverse geocodes events that arrived without a locality.
// A nil geocoder, a lookup failure, or an empty result leaves the event
// unchanged (graceful degradation). Events that already carry a locality
// are never rewritten.
func FillLocality(ctx context.Context, event Event, geocoder Geocoder, logger *slog.Logger) Event {
	if geocoder == nil || event.Locality != "" {
		return event
	}

	result, err := geocoder.ReverseGeocode(ctx, event.Latitude, event.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", event.ID,
			"lat", event.Latitude,
			"lon", event.Longitude,
			"error", err,
		)
		return event
	}

	switch {
	case result.PlaceName != "":
		event.Locality = result.PlaceName
	case result.FormattedAddress != "":
		event.Locality = result.FormattedAddress
	}
	return event
}
