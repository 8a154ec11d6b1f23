// Package kafka wraps the franz-go client for the topics this service
// publishes: the activity outbox stream and expiry alert notifications.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"vendorhub/internal/platform/config"
)

// Producer publishes records synchronously. Callers treat a returned error as
// "not delivered" and retry on their own schedule; the producer itself does
// not buffer across calls.
type Producer struct {
	client *kgo.Client
}

// NewProducer connects to the configured brokers and ensures the topics
// exist. Returns nil if no brokers are configured (Kafka optional in dev).
func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := ensureTopics(ctx, client, cfg.ActivityTopic, cfg.AlertTopic); err != nil {
		client.Close()
		return nil, err
	}

	return &Producer{client: client}, nil
}

// Publish sends one record and waits for broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Producer) Close() {
	p.client.Close()
}

func ensureTopics(ctx context.Context, client *kgo.Client, topics ...string) error {
	adm := kadm.NewClient(client)
	resps, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}
