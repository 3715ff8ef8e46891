package geonet

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeGeoJSON = "application/vnd.geo+json"
	headerContentType  = "Content-Type"
)

const sampleFeed = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [176.2473, -38.6212]},
      "properties": {
        "publicID": "2024p775512",
        "time": "2024-10-14T09:30:12.345Z",
        "depth": 5.2,
        "magnitude": 3.1,
        "mmi": 3,
        "locality": "10 km north-west of Taupo",
        "quality": "best"
      }
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [173.95, -42.4]},
      "properties": {
        "publicID": "2024p775400",
        "time": "2024-10-14T08:01:00.000Z",
        "depth": 0,
        "magnitude": 0,
        "mmi": 1,
        "locality": ""
      }
    }
  ]
}`

func testClient(url string) *Client {
	return NewClient(url, 5*time.Second, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set(headerContentType, contentTypeGeoJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := serveBody(t, http.StatusOK, sampleFeed)

	events, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	want := []domain.Event{
		{
			ID:         "2024p775512",
			OccurredAt: time.Date(2024, time.October, 14, 9, 30, 12, 345000000, time.UTC),
			Magnitude:  3.1,
			DepthKm:    5.2,
			Locality:   "10 km north-west of Taupo",
			Latitude:   -38.6212,
			Longitude:  176.2473,
		},
		{
			ID:         "2024p775400",
			OccurredAt: time.Date(2024, time.October, 14, 8, 1, 0, 0, time.UTC),
			Latitude:   -42.4,
			Longitude:  173.95,
		},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Fetch_MissingFeaturesIsEmpty(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `{"type":"FeatureCollection"}`)

	events, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClient_Fetch_MissingMagnitude(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `{"features":[{
		"geometry":{"coordinates":[174.7,-41.3]},
		"properties":{"publicID":"2024p1","time":"2024-10-14T09:30:12Z","depth":12.0,"locality":"Wellington"}
	}]}`)

	events, err := testClient(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "magnitude")
	assert.Nil(t, events)
}

func TestClient_Fetch_RequiredFields(t *testing.T) {
	for _, tc := range []struct {
		name    string
		feature string
		field   string
	}{
		{"publicID", `{"geometry":{"coordinates":[1,2]},"properties":{"time":"2024-10-14T09:30:12Z","magnitude":1,"depth":1}}`, "publicID"},
		{"depth", `{"geometry":{"coordinates":[1,2]},"properties":{"publicID":"x","time":"2024-10-14T09:30:12Z","magnitude":1}}`, "depth"},
		{"time", `{"geometry":{"coordinates":[1,2]},"properties":{"publicID":"x","magnitude":1,"depth":1}}`, "time"},
		{"coordinates", `{"geometry":{"coordinates":[1]},"properties":{"publicID":"x","time":"2024-10-14T09:30:12Z","magnitude":1,"depth":1}}`, "coordinates"},
		{"bad time", `{"geometry":{"coordinates":[1,2]},"properties":{"publicID":"x","time":"soon","magnitude":1,"depth":1}}`, "soon"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := serveBody(t, http.StatusOK, `{"features":[`+tc.feature+`]}`)
			_, err := testClient(srv.URL).Fetch(context.Background())
			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestClient_Fetch_InvalidEnvelope(t *testing.T) {
	srv := serveBody(t, http.StatusOK, `<html>maintenance</html>`)

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetch)
}

func TestClient_Fetch_HTTPError(t *testing.T) {
	srv := serveBody(t, http.StatusServiceUnavailable, `{"message":"down"}`)

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Fetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := c.Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetch)
}

func TestClient_Fetch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Fetch(context.Background())
	require.ErrorIs(t, err, domain.ErrFetch)
}
