//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

const testTopic = "test-earthquakes"

// TestKafkaWriterPublishesBatch verifies every written event reaches the
// topic keyed by its publicID with run metadata in the headers.
func TestKafkaWriterPublishesBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	w := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = w.Close() })

	writtenAt := time.Date(2024, 10, 14, 9, 30, 0, 0, time.UTC)
	batch := domain.Batch{
		RunID:     "itest01",
		WrittenAt: writtenAt,
		Events: []domain.Event{
			{ID: "2024p000001", OccurredAt: writtenAt.Add(-time.Hour), Magnitude: 5.9, DepthKm: 33, Locality: "Kermadec Islands"},
			{ID: "2024p000002", OccurredAt: writtenAt.Add(-2 * time.Hour), Magnitude: 2.0, DepthKm: 6, Locality: "Taupo"},
		},
	}
	require.NoError(t, w.Push(ctx, batch))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i, want := range batch.Events {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read message %d", i)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}

		var got domain.Event
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, want.ID, string(msg.Key))
		assert.Equal(t, want.ID, got.ID)
		assert.True(t, want.OccurredAt.Equal(got.OccurredAt))
		assert.Equal(t, "itest01", headers["run_id"])
		assert.Equal(t, string(domain.Classify(want.Magnitude)), headers["severity"])
	}
}
