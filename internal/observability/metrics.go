package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion and queries.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec // labels: outcome={success,empty,fetch_error,store_error}
	EventsFetched    prometheus.Counter
	EventsWritten    prometheus.Counter
	RunDuration      prometheus.Histogram
	SchedulerRunning prometheus.Gauge

	// Feed metrics.
	FeedRequestDuration prometheus.Histogram

	// Sink fan-out metrics.
	SinkPushErrors *prometheus.CounterVec // labels: sink

	// Query metrics.
	QueriesTotal *prometheus.CounterVec // labels: endpoint

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeEnabled  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.RunsTotal,
		m.EventsFetched,
		m.EventsWritten,
		m.RunDuration,
		m.SchedulerRunning,
		m.FeedRequestDuration,
		m.SinkPushErrors,
		m.QueriesTotal,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      help("Ingestion runs by outcome."),
		}, []string{"outcome"}),
		EventsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_fetched_total",
			Help:      help("Total events parsed from the feed."),
		}),
		EventsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_written_total",
			Help:      help("Total events upserted into the store."),
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_run_duration_seconds",
			Help:      help("Duration of a complete fetch-upsert run."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scheduler_running",
			Help:      help("1 when the polling scheduler is active, 0 when stopped."),
		}),
		FeedRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      help("GeoNet feed request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SinkPushErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_push_errors_total",
			Help:      help("Failed sink deliveries by sink."),
		}, []string{"sink"}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      help("Dashboard queries served by endpoint."),
		}, []string{"endpoint"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Reverse geocoding API requests by outcome."),
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by result."),
		}, []string{"result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when locality geocoding is enabled, 0 otherwise."),
		}),
	}
}
