// Package kafka publishes ingested events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

// Writer produces one message per event to the configured topic.
// It implements pipeline.Sink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// Push publishes the batch in a single WriteMessages call. Messages are keyed
// by event ID so revisions of one event land on the same partition.
func (w *Writer) Push(ctx context.Context, batch domain.Batch) error {
	if len(batch.Events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(batch.Events))
	for i := range batch.Events {
		msg, err := serializeToMessage(batch, batch.Events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	w.logger.Debug("published batch", "run_id", batch.RunID, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an event into a Kafka message.
func serializeToMessage(batch domain.Batch, event domain.Event) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", event.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(batch.RunID)},
			{Key: "severity", Value: []byte(domain.Classify(event.Magnitude))},
			{Key: "written_at", Value: []byte(batch.WrittenAt.Format(time.RFC3339))},
		},
	}, nil
}
