// Package postgres implements the event store backed by PostgreSQL with
// PostGIS point geometry.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists events in the earthquakes table.
type Store struct {
	db      *sql.DB
	timeout time.Duration
}

// New opens a connection to the database at the given URL, configures the
// pool, and runs any pending migrations.
func New(databaseURL string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", domain.ErrStoreUnavailable, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", domain.ErrStoreUnavailable, err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newWithDB(db, timeout), nil
}

func newWithDB(db *sql.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
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

// Upsert writes the batch inside one transaction. Rows that already exist
// have every field overwritten.
func (s *Store) Upsert(ctx context.Context, events []domain.Event) (int, error) {
	if err := domain.CheckBatch(events); err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	err := s.runInTransaction(ctx, func(tx executor) error {
		for _, e := range events {
			if err := upsertEvent(ctx, tx, e); err != nil {
				return fmt.Errorf("upsert event %s: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	return domain.DistinctIDs(events), nil
}

// ListAll returns every stored event, newest first, ties ordered by ID.
func (s *Store) ListAll(ctx context.Context) ([]domain.Event, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	events, err := listEvents(ctx, s.db)
	if err != nil {
		return nil, classify(err)
	}
	return events, nil
}

// runInTransaction begins a transaction, calls fn, and commits on success or
// rolls back on error.
func (s *Store) runInTransaction(ctx context.Context, fn func(tx executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver failures onto the domain taxonomy. Integrity
// violations surface as constraint errors; everything else means the store
// could not complete the call.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return fmt.Errorf("%w: %v", domain.ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
