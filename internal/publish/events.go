package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/artemlk/uniqimg/internal/config"
	"github.com/artemlk/uniqimg/internal/model"
)

// BatchEvent is the message published after a batch finishes. Consumers
// use it to trigger downstream syndication of the processed assets.
type BatchEvent struct {
	BatchID    string         `json:"batch_id"`
	Summary    map[string]int `json:"summary"`
	Total      int            `json:"total"`
	ReportPath string         `json:"report_path"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Events publishes batch completion events to Kafka.
type Events struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
}

// NewEvents creates a Kafka producer for the configured topic.
func NewEvents(cfg config.Events, strategy retry.Strategy) *Events {
	return &Events{
		Client:   wbfkafka.NewProducer(cfg.Brokers, cfg.Topic),
		strategy: strategy,
	}
}

// PublishBatch serializes the batch outcome and sends it with retries.
// The batch ID is used as the message key for partitioning.
func (e *Events) PublishBatch(ctx context.Context, batch model.BatchResult) error {
	event := BatchEvent{
		BatchID:    batch.ID.String(),
		Summary:    batch.Summary,
		Total:      len(batch.Results),
		ReportPath: batch.ReportPath,
		StartedAt:  batch.StartedAt,
		FinishedAt: batch.FinishedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal batch event: %w", err)
	}

	if err := e.Client.SendWithRetry(ctx, e.strategy, []byte(event.BatchID), data); err != nil {
		return fmt.Errorf("failed to send batch event: %w", err)
	}
	return nil
}

// Close releases the underlying Kafka client.
func (e *Events) Close() error {
	return e.Client.Close()
}
