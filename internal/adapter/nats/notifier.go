// Package nats announces completed ingestion runs on a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Notification is the JSON payload published once per written batch.
// Alerts carries the events classified as alert severity so subscribers can
// react without re-reading the store.
type Notification struct {
	RunID     string         `json:"run_id"`
	WrittenAt time.Time      `json:"written_at"`
	Summary   domain.Summary `json:"summary"`
	EventIDs  []string       `json:"event_ids"`
	Alerts    []domain.Event `json:"alerts"`
}

// Notifier publishes notifications to a subject. It implements pipeline.Sink.
type Notifier struct {
	conn    *natsgo.Conn
	subject string
	logger  *slog.Logger
}

// NewNotifier connects to NATS with automatic reconnection.
func NewNotifier(url, subject string, logger *slog.Logger, opts ...natsgo.Option) (*Notifier, error) {
	defaults := []natsgo.Option{
		natsgo.Name("quake-data-etl"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(time.Second),
	}
	nc, err := natsgo.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &Notifier{conn: nc, subject: subject, logger: logger}, nil
}

// Name identifies the sink in logs and metrics.
func (n *Notifier) Name() string { return "nats" }

// Push publishes one notification and waits for the server to acknowledge
// the flush, so a dead connection surfaces as an error.
func (n *Notifier) Push(ctx context.Context, batch domain.Batch) error {
	data, err := json.Marshal(buildNotification(batch))
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", n.subject, err)
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", n.subject, err)
	}
	n.logger.Debug("published notification", "run_id", batch.RunID, "subject", n.subject)
	return nil
}

func (n *Notifier) Close() error {
	n.conn.Close()
	return nil
}

func buildNotification(batch domain.Batch) Notification {
	note := Notification{
		RunID:     batch.RunID,
		WrittenAt: batch.WrittenAt,
		Summary:   domain.Summarize(batch.Events),
		EventIDs:  make([]string, 0, len(batch.Events)),
		Alerts:    []domain.Event{},
	}
	for _, e := range batch.Events {
		note.EventIDs = append(note.EventIDs, e.ID)
		if domain.Classify(e.Magnitude) == domain.SeverityAlert {
			note.Alerts = append(note.Alerts, e)
		}
	}
	return note
}
