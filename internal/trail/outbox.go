package trail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vendorhub/internal/platform/metrics"
	"vendorhub/pkg/requestcontext"
)

// outboxPayload is the JSON structure published to Kafka. Field names are
// part of the consumer contract.
type outboxPayload struct {
	ID          string            `json:"id"`
	SupplierID  string            `json:"supplier_id"`
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ActorType   string            `json:"actor_type"`
	ActorID     string            `json:"actor_id,omitempty"`
	ActorName   string            `json:"actor_name"`
	Metadata    Metadata          `json:"metadata"`
	OccurredAt  string            `json:"occurred_at"`
	Extra       map[string]string `json:"extra,omitempty"`
}

func marshalOutboxPayload(entry ActivityLogEntry) ([]byte, error) {
	p := outboxPayload{
		ID:          entry.ID.String(),
		SupplierID:  entry.SupplierID.String(),
		Type:        string(entry.Type),
		Title:       entry.Title,
		Description: entry.Description,
		ActorType:   string(entry.Actor.Type),
		ActorName:   entry.Actor.Name,
		Metadata:    entry.Metadata,
		OccurredAt:  entry.CreatedAt.Format(time.RFC3339Nano),
	}
	if entry.Actor.ID != nil {
		p.ActorID = entry.Actor.ID.String()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload: %w", err)
	}
	return payload, nil
}

// Publisher delivers one staged payload. The Kafka producer satisfies this;
// tests substitute an in-process sink.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxRelay drains committed activity entries to Kafka. Entries that fail
// to publish stay unpublished and are retried on the next pass, so delivery
// is at-least-once; consumers dedupe on the entry ID.
type OutboxRelay struct {
	store     OutboxStore
	publisher Publisher
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewOutboxRelay(store OutboxStore, publisher Publisher, topic string, batchSize int, interval time.Duration, logger *slog.Logger, m *metrics.Metrics) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		topic:     topic,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
		metrics:   m,
	}
}

// Run relays batches until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries went out.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.Unpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load unpublished entries: %w", err)
	}

	published := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if err := r.publisher.Publish(ctx, r.topic, []byte(entry.SupplierID.String()), entry.Payload); err != nil {
			// Leave it staged; the next pass retries.
			r.metrics.OutboxPublishRetries.Inc()
			r.logger.WarnContext(ctx, "outbox publish failed, will retry",
				"entry_id", entry.ID,
				"error", err,
			)
			continue
		}
		if err := r.store.MarkPublished(ctx, entry.ID, requestcontext.Now(ctx)); err != nil {
			return published, fmt.Errorf("mark published: %w", err)
		}
		r.metrics.OutboxPublished.Inc()
		published++
	}
	return published, nil
}
