package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

// eventView is an event as rendered for the dashboard, with derived classes.
type eventView struct {
	domain.Event
	Severity  domain.Severity  `json:"severity"`
	DepthBand domain.DepthBand `json:"depth_band"`
}

func (s *Server) handleEarthquakes(w http.ResponseWriter, r *http.Request) {
	s.metrics.QueriesTotal.WithLabelValues("earthquakes").Inc()

	res, ok := s.runQuery(w, r)
	if !ok {
		return
	}

	views := make([]eventView, len(res.Events))
	for i, e := range res.Events {
		views[i] = eventView{
			Event:     e,
			Severity:  domain.Classify(e.Magnitude),
			DepthBand: domain.DepthBandFor(e.DepthKm),
		}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.metrics.QueriesTotal.WithLabelValues("summary").Inc()

	res, ok := s.runQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res.Summary)
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request) (query.Result, bool) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return query.Result{}, false
	}

	res, err := s.querier.Query(r.Context(), f)
	if err != nil {
		status := statusForQueryError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("query failed", "error", err, "path", r.URL.Path)
		}
		writeError(w, status, err.Error())
		return query.Result{}, false
	}
	return res, true
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingester.RunOnce(r.Context())
	if err != nil {
		writeJSON(w, statusForIngestError(err), map[string]any{
			"error":  err.Error(),
			"report": report,
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseFilter reads the dashboard parameters, applying defaults for any
// that are absent.
func parseFilter(q url.Values) (domain.Filter, error) {
	f := query.DefaultFilter()

	if v := q.Get("min_magnitude"); v != "" {
		n, err := parseFinite(v)
		if err != nil {
			return f, fmt.Errorf("invalid min_magnitude %q", v)
		}
		f.MinMagnitude = n
	}
	if v := q.Get("max_depth"); v != "" {
		n, err := parseFinite(v)
		if err != nil {
			return f, fmt.Errorf("invalid max_depth %q", v)
		}
		f.MaxDepthKm = n
	}
	if v := q.Get("time_range_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid time_range_hours %q", v)
		}
		f.LookbackHours = n
	}

	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

func parseFinite(v string) (float64, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("not a finite number")
	}
	return n, nil
}

func statusForQueryError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func statusForIngestError(err error) int {
	switch {
	case errors.Is(err, domain.ErrFetch), errors.Is(err, domain.ErrValidation):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrConstraintViolation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
