package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

const (
	runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	runIDLength   = 12
)

// FeedClient retrieves the current set of events from the upstream feed.
type FeedClient interface {
	Fetch(ctx context.Context) ([]domain.Event, error)
}

// EventWriter persists a batch of events atomically, keyed by event ID.
type EventWriter interface {
	Upsert(ctx context.Context, events []domain.Event) (int, error)
}

// Sink receives every batch after it has been written to the store.
type Sink interface {
	Name() string
	Push(ctx context.Context, batch domain.Batch) error
}

// Pipeline runs fetch, enrich, upsert, and fan-out as one ingestion run.
type Pipeline struct {
	feed     FeedClient
	writer   EventWriter
	enricher *Enricher
	sinks    []Sink
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock
	ready    atomic.Bool
}

// New creates a Pipeline. enricher may be nil to store events as fetched.
func New(feed FeedClient, writer EventWriter, enricher *Enricher, sinks []Sink, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		feed:     feed,
		writer:   writer,
		enricher: enricher,
		sinks:    sinks,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
	}
}

// CheckReadiness returns nil once at least one run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion run has completed yet")
	}
	return nil
}

// RunOnce performs a single ingestion run. Fetch failures are returned
// unchanged; a failed upsert fails the run. Sink failures are logged and
// counted only, since the store is authoritative.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.IngestReport, error) {
	start := p.clock.Now()
	runID, err := nanoid.Generate(runIDAlphabet, runIDLength)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("generate run id: %w", err)
	}
	report := domain.IngestReport{RunID: runID}
	logger := p.logger.With("run_id", runID)

	events, err := p.feed.Fetch(ctx)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("fetch_error").Inc()
		logger.Error("fetch failed", "error", err)
		return report, err
	}
	report.Fetched = len(events)
	p.metrics.EventsFetched.Add(float64(len(events)))

	if len(events) == 0 {
		p.metrics.RunsTotal.WithLabelValues("empty").Inc()
		p.ready.Store(true)
		logger.Info("feed returned no events")
		return report, nil
	}

	if p.enricher != nil {
		events = p.enricher.Enrich(ctx, events)
	}

	written, err := p.writer.Upsert(ctx, events)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("store_error").Inc()
		logger.Error("upsert failed", "error", err, "batch_size", len(events))
		return report, fmt.Errorf("upsert batch: %w", err)
	}
	report.Written = written
	p.metrics.EventsWritten.Add(float64(written))

	p.fanOut(ctx, logger, domain.Batch{RunID: runID, WrittenAt: p.clock.Now().UTC(), Events: events})

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())
	p.ready.Store(true)
	logger.Info("ingestion run complete", "fetched", report.Fetched, "written", report.Written)
	return report, nil
}

func (p *Pipeline) fanOut(ctx context.Context, logger *slog.Logger, batch domain.Batch) {
	for _, s := range p.sinks {
		if err := s.Push(ctx, batch); err != nil {
			p.metrics.SinkPushErrors.WithLabelValues(s.Name()).Inc()
			logger.Warn("sink push failed", "sink", s.Name(), "error", err)
		}
	}
}

// Run executes RunOnce immediately and then on every interval tick until
// the context is cancelled. A failed run is retried at the next tick.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	p.logger.Info("scheduler started", "interval", interval)
	p.metrics.SchedulerRunning.Set(1)
	defer p.metrics.SchedulerRunning.Set(0)

	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("ingestion run failed, retrying at next tick", "error", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}
