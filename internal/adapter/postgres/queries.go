package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const upsertSQL = `
	INSERT INTO earthquakes (public_id, time, magnitude, depth_km, locality, geom, updated_at)
	VALUES ($1, $2, $3, $4, $5, ST_SetSRID(ST_MakePoint($6, $7), 4326), now())
	ON CONFLICT (public_id) DO UPDATE SET
		time       = EXCLUDED.time,
		magnitude  = EXCLUDED.magnitude,
		depth_km   = EXCLUDED.depth_km,
		locality   = EXCLUDED.locality,
		geom       = EXCLUDED.geom,
		updated_at = now()`

const listSQL = `
	SELECT public_id, time, magnitude, depth_km, locality, ST_X(geom), ST_Y(geom)
	FROM earthquakes
	ORDER BY time DESC, public_id ASC`

func upsertEvent(ctx context.Context, db executor, e domain.Event) error {
	_, err := db.ExecContext(ctx, upsertSQL,
		e.ID,
		e.OccurredAt.UTC(),
		e.Magnitude,
		e.DepthKm,
		e.Locality,
		e.Longitude,
		e.Latitude,
	)
	return err
}

func listEvents(ctx context.Context, db executor) ([]domain.Event, error) {
	rows, err := db.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Magnitude, &e.DepthKm, &e.Locality, &e.Longitude, &e.Latitude); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
