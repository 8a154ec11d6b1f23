//go:build integration

package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"vendorhub/internal/domain"
	"vendorhub/internal/notify"
	"vendorhub/internal/platform/config"
	"vendorhub/internal/platform/kafka"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/trail"
	"vendorhub/pkg/testutil/containers"
)

const (
	alertTopic    = "vendorhub.expiry-alerts"
	activityTopic = "vendorhub.activity"
)

// TestKafkaRelays drives both relay loops against a real broker: expiry
// alerts through the notifier and activity log entries through the outbox.
func TestKafkaRelays(t *testing.T) {
	s := newStack(t)
	rp := containers.NewRedpandaContainer(t)
	ctx := context.Background()

	producer, err := kafka.NewProducer(config.KafkaConfig{
		Brokers:       []string{rp.Broker},
		ActivityTopic: activityTopic,
		AlertTopic:    alertTopic,
	})
	require.NoError(t, err)
	require.NotNil(t, producer)
	t.Cleanup(producer.Close)

	log := logger.New("integration-test", "error")
	m := metrics.NewForTesting()

	sup := seedApprovedSupplier(t, s, "alerts@acme.test")
	expiryDate := time.Now().AddDate(0, 0, 5)
	doc, err := s.documents.Upload(ctx, sup.ID, domain.DocTaxClearance, "docs/tax.pdf", &expiryDate)
	require.NoError(t, err)
	_, err = s.documents.Verify(ctx, doc.ID, uuid.New(), "Ops Admin", nil, "")
	require.NoError(t, err)

	t.Run("alert relay publishes and confirms", func(t *testing.T) {
		relay := notify.NewRelay(s.expiry, notify.NewKafkaNotifier(producer, alertTopic), time.Minute, 100, log, m)
		sent, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, sent)

		record := consumeOne(t, rp.Broker, alertTopic)
		assert.Equal(t, sup.ID.String(), string(record.Key))

		var payload map[string]any
		require.NoError(t, json.Unmarshal(record.Value, &payload))
		assert.Equal(t, doc.ID.String(), payload["document_id"])
		assert.Equal(t, "7_days", payload["urgency"])
		assert.Equal(t, "alerts@acme.test", payload["email"])

		pending, err := s.expiry.PendingAlerts(ctx, 100)
		require.NoError(t, err)
		assert.Empty(t, pending, "delivered alert should leave the pending set")
	})

	t.Run("outbox relay drains activity entries", func(t *testing.T) {
		relay := trail.NewOutboxRelay(s.trail, producer, activityTopic, 100, time.Minute, log, m)
		published, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		require.Greater(t, published, 0, "onboarding flow should have queued activity")

		record := consumeOne(t, rp.Broker, activityTopic)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(record.Value, &payload))
		assert.Equal(t, sup.ID.String(), payload["supplier_id"])
		assert.NotEmpty(t, payload["type"])
		assert.NotEmpty(t, payload["title"])

		again, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, again, "drained outbox stays drained")
	})
}

// consumeOne reads the first record on a topic from the beginning.
func consumeOne(t *testing.T, broker, topic string) *kgo.Record {
	t.Helper()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fetches := client.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records, "expected a record on %s", topic)
	return records[0]
}
