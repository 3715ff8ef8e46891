// Package sqlite implements the event store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const upsertSQL = `
	INSERT INTO earthquakes (public_id, occurred_at_ns, magnitude, depth_km, locality, lon, lat)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(public_id) DO UPDATE SET
		occurred_at_ns = excluded.occurred_at_ns,
		magnitude      = excluded.magnitude,
		depth_km       = excluded.depth_km,
		locality       = excluded.locality,
		lon            = excluded.lon,
		lat            = excluded.lat`

const listSQL = `
	SELECT public_id, occurred_at_ns, magnitude, depth_km, locality, lon, lat
	FROM earthquakes
	ORDER BY occurred_at_ns DESC, public_id ASC`

// Store persists events in SQLite. Timestamps are stored as UTC unix
// nanoseconds so ordering is numeric.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// Open creates or opens the database at path and applies the schema.
// The pool is limited to a single connection since SQLite allows one writer.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", domain.ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connect database: %v", domain.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, timeout: timeout}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Upsert writes the batch in one transaction; any failure rolls back the
// whole batch.
func (s *Store) Upsert(ctx context.Context, events []domain.Event) (int, error) {
	if err := domain.CheckBatch(events); err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %v", domain.ErrStoreUnavailable, err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.ID,
			e.OccurredAt.UTC().UnixNano(),
			e.Magnitude,
			e.DepthKm,
			e.Locality,
			e.Longitude,
			e.Latitude,
		); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert event %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return domain.DistinctIDs(events), nil
}

// ListAll returns every stored event, newest first, ties ordered by ID.
func (s *Store) ListAll(ctx context.Context) ([]domain.Event, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			e  domain.Event
			ns int64
		)
		if err := rows.Scan(&e.ID, &ns, &e.Magnitude, &e.DepthKm, &e.Locality, &e.Longitude, &e.Latitude); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.OccurredAt = time.Unix(0, ns).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
