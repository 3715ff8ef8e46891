// Package snapshot implements the event store as a whole-file JSON snapshot
// mapping publicID to event.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

const lockRetryDelay = 25 * time.Millisecond

// Store persists events to a JSON file. Every Upsert loads the current
// snapshot, merges the batch by ID, and replaces the file atomically, so
// records absent from a batch are never dropped. An advisory lock on
// <path>.lock serializes the merge across processes sharing the file.
type Store struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// Open returns a store backed by path, creating its parent directory.
// The file itself is created on the first Upsert.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create snapshot dir: %v", domain.ErrStoreUnavailable, err)
		}
	}
	return &Store{path: path, lock: flock.New(path + ".lock")}, nil
}

// Upsert merges events into the snapshot. The batch is validated before the
// file is touched; a failed write leaves the previous snapshot in place.
func (s *Store) Upsert(ctx context.Context, events []domain.Event) (int, error) {
	if err := domain.CheckBatch(events); err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(ctx, true)
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, err := s.load()
	if err != nil {
		return 0, err
	}
	for _, e := range events {
		e.OccurredAt = e.OccurredAt.UTC()
		records[e.ID] = e
	}
	if err := s.write(records); err != nil {
		return 0, err
	}
	return domain.DistinctIDs(events), nil
}

// ListAll returns every stored event, newest first, ties ordered by ID.
func (s *Store) ListAll(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(records))
	for id, e := range records {
		e.ID = id
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].OccurredAt.Equal(events[j].OccurredAt) {
			return events[i].OccurredAt.After(events[j].OccurredAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// Ping checks that the snapshot directory is reachable.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the lock file handle. The snapshot itself is not held open
// between calls.
func (s *Store) Close() error { return s.lock.Close() }

func (s *Store) snapshot(ctx context.Context) (map[string]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.load()
}

// acquire takes the cross-process lock, exclusive for writers and shared for
// readers, waiting until ctx is done.
func (s *Store) acquire(ctx context.Context, exclusive bool) (func(), error) {
	try := s.lock.TryRLockContext
	if exclusive {
		try = s.lock.TryLockContext
	}
	locked, err := try(ctx, lockRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: lock snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: lock snapshot: not acquired", domain.ErrStoreUnavailable)
	}
	return func() { _ = s.lock.Unlock() }, nil
}

func (s *Store) load() (map[string]domain.Event, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]domain.Event), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	if len(data) == 0 {
		return make(map[string]domain.Event), nil
	}

	records := make(map[string]domain.Event)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	return records, nil
}

// write replaces the snapshot via a temp file in the same directory and rename.
func (s *Store) write(records map[string]domain.Event) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write temp snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace snapshot: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
