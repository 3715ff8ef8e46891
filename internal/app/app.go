// Package app assembles the store, feed client, sinks, pipeline, and query
// service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/geonet"
	kafkaadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/mapbox"
	natsadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/nats"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/postgres"
	s3adapter "github.com/couchcryptid/quake-data-etl/internal/adapter/s3"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/quake-data-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
	"github.com/couchcryptid/quake-data-etl/internal/pipeline"
	"github.com/couchcryptid/quake-data-etl/internal/query"
)

// Store is the contract every event store backend satisfies.
type Store interface {
	pipeline.EventWriter
	query.EventReader
	Ping(ctx context.Context) error
	Close() error
}

// App holds the wired components for one process.
type App struct {
	Config   *config.Config
	Store    Store
	Pipeline *pipeline.Pipeline
	Query    *query.Service
	Metrics  *observability.Metrics

	logger  *slog.Logger
	closers []namedCloser
}

type namedCloser struct {
	name string
	io.Closer
}

// OpenStore opens the backend selected by STORE_BACKEND.
func OpenStore(cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		store, err = postgres.New(cfg.DatabaseURL, cfg.StoreTimeout)
	case config.BackendSQLite:
		store, err = sqlite.Open(cfg.SQLitePath, cfg.StoreTimeout)
	case config.BackendFile:
		store, err = snapshot.Open(cfg.SnapshotPath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// New opens the store and builds the pipeline and query service. Sinks are
// only created for the transports that are configured. clock may be nil.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) (*App, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	store, err := OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	a := &App{Config: cfg, Store: store, Metrics: metrics, logger: logger}
	a.closers = append(a.closers, namedCloser{"store", store})
	logger.Info("event store opened", "backend", cfg.StoreBackend)

	sinks, err := a.buildSinks(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	feed := geonet.NewClient(cfg.FeedURL, cfg.FeedTimeout, metrics, logger)
	a.Pipeline = pipeline.New(feed, store, pipeline.NewEnricher(geocoder, logger), sinks, logger, metrics, clock)
	a.Query = query.NewService(store, clock)
	return a, nil
}

func (a *App) buildSinks(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, error) {
	var sinks []pipeline.Sink

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, w)
		a.closers = append(a.closers, namedCloser{"kafka writer", w})
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	if cfg.NATSURL != "" {
		n, err := natsadapter.NewNotifier(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, n)
		a.closers = append(a.closers, namedCloser{"nats notifier", n})
		logger.Info("nats sink enabled", "subject", cfg.NATSSubject)
	}
	if cfg.S3Bucket != "" {
		s, err := s3adapter.NewArchiver(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
		logger.Info("s3 sink enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	}
	return sinks, nil
}

// CheckReadiness requires a reachable store and, when the scheduler is
// enabled, at least one completed ingestion run.
func (a *App) CheckReadiness(ctx context.Context) error {
	if err := a.Store.Ping(ctx); err != nil {
		return err
	}
	if a.Config.PollInterval > 0 {
		return a.Pipeline.CheckReadiness(ctx)
	}
	return nil
}

// Close releases sinks first and the store last.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			a.logger.Error("close failed", "component", c.name, "error", err)
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
