// Package s3 archives every written batch as a JSON Lines object in an
// S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

const contentTypeNDJSON = "application/x-ndjson"

// Archiver writes one object per ingestion run. It implements pipeline.Sink.
type Archiver struct {
	client *awss3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewArchiver creates an archiver. If endpoint is non-empty, path-style
// addressing is enabled (for MinIO and similar).
func NewArchiver(ctx context.Context, bucket, prefix, region, endpoint string, logger *slog.Logger) (*Archiver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*awss3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &Archiver{
		client: awss3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Name identifies the sink in logs and metrics.
func (a *Archiver) Name() string { return "s3" }

// Push uploads the batch under a date-partitioned key.
func (a *Archiver) Push(ctx context.Context, batch domain.Batch) error {
	if len(batch.Events) == 0 {
		return nil
	}
	data, err := encodeJSONL(batch.Events)
	if err != nil {
		return err
	}

	key := objectKey(a.prefix, batch)
	_, err = a.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeNDJSON),
		Metadata:    map[string]string{"run-id": batch.RunID},
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	a.logger.Debug("archived batch", "run_id", batch.RunID, "bucket", a.bucket, "key", key, "events", len(batch.Events))
	return nil
}

// objectKey builds <prefix>YYYY/MM/DD/<run id>.jsonl from the batch write time.
func objectKey(prefix string, batch domain.Batch) string {
	day := batch.WrittenAt.UTC().Format("2006/01/02")
	return prefix + path.Join(day, batch.RunID+".jsonl")
}

func encodeJSONL(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("encode event %s: %w", e.ID, err)
		}
	}
	return buf.Bytes(), nil
}
