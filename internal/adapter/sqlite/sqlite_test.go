package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, time.October, 14, 9, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "quakes.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func batch() []domain.Event {
	return []domain.Event{
		{ID: "2024p000001", OccurredAt: base, Magnitude: 3.2, DepthKm: 12, Locality: "Seddon", Latitude: -41.7, Longitude: 174.1},
		{ID: "2024p000002", OccurredAt: base.Add(time.Hour), Magnitude: 4.6, DepthKm: 180, Locality: "Taumarunui", Latitude: -38.9, Longitude: 175.3},
	}
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	n, err := s.Upsert(ctx, batch())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	first, err := s.ListAll(ctx)
	require.NoError(t, err)

	_, err = s.Upsert(ctx, batch())
	require.NoError(t, err)
	second, err := s.ListAll(ctx)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("state changed on re-upsert (-first +second):\n%s", diff)
	}
}

func TestStore_UpsertOverwritesByID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, batch())
	require.NoError(t, err)

	revised := batch()[1]
	revised.Magnitude = 4.9
	revised.DepthKm = 176.5
	_, err = s.Upsert(ctx, []domain.Event{revised})
	require.NoError(t, err)

	events, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, revised.ID, events[0].ID)
	assert.InDelta(t, 4.9, events[0].Magnitude, 1e-9)
	assert.InDelta(t, 176.5, events[0].DepthKm, 1e-9)
}

func TestStore_ListAllRoundTripsFields(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	nzdt := time.FixedZone("NZDT", 13*60*60)
	in := domain.Event{
		ID: "2024p775512", OccurredAt: time.Date(2024, time.October, 14, 22, 30, 12, 345000000, nzdt),
		Magnitude: 3.1, DepthKm: 5.2, Locality: "10 km north-west of Taupo", Latitude: -38.6212, Longitude: 176.2473,
	}
	_, err := s.Upsert(ctx, []domain.Event{in})
	require.NoError(t, err)

	events, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	want := in
	want.OccurredAt = in.OccurredAt.UTC()
	if diff := cmp.Diff(want, events[0]); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, time.UTC, events[0].OccurredAt.Location())
}

func TestStore_ListAllOrdersNewestFirstWithIDTieBreak(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	tie := domain.Event{ID: "2024p000000", OccurredAt: base.Add(time.Hour), Magnitude: 1, DepthKm: 1}
	_, err := s.Upsert(ctx, append(batch(), tie))
	require.NoError(t, err)

	events, err := s.ListAll(ctx)
	require.NoError(t, err)
	got := []string{events[0].ID, events[1].ID, events[2].ID}
	assert.Equal(t, []string{"2024p000000", "2024p000002", "2024p000001"}, got)
}

func TestStore_ConstraintViolationWritesNothing(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	bad := append(batch(), domain.Event{ID: "2024p000009"})
	_, err := s.Upsert(ctx, bad)
	require.ErrorIs(t, err, domain.ErrConstraintViolation)

	events, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Close())

	_, err := s.Upsert(context.Background(), batch())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = s.ListAll(context.Background())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	require.ErrorIs(t, s.Ping(context.Background()), domain.ErrStoreUnavailable)
}

func TestStore_UpsertCountsDistinctIDs(t *testing.T) {
	s := openTemp(t)
	revised := batch()[0]
	revised.Magnitude = 3.4

	n, err := s.Upsert(context.Background(), append(batch(), revised))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	events, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.InDelta(t, 3.4, events[1].Magnitude, 1e-9)
}

func TestStore_UpsertRejectsUnrepresentableTime(t *testing.T) {
	s := openTemp(t)
	far := domain.Event{ID: "2024p999999", OccurredAt: time.Date(2300, time.January, 1, 0, 0, 0, 0, time.UTC)}

	_, err := s.Upsert(context.Background(), []domain.Event{far})
	require.ErrorIs(t, err, domain.ErrConstraintViolation)
}
