package trail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/pkg/requestcontext"
)

// sinkPublisher collects published messages; FailFor simulates broker
// trouble for specific keys.
type sinkPublisher struct {
	messages map[string][][]byte
	FailFor  map[string]error
}

func newSinkPublisher() *sinkPublisher {
	return &sinkPublisher{messages: make(map[string][][]byte), FailFor: make(map[string]error)}
}

func (p *sinkPublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	if err := p.FailFor[string(key)]; err != nil {
		return err
	}
	p.messages[topic] = append(p.messages[topic], value)
	return nil
}

func stagedEntry(t *testing.T, store *MemoryStore, supplierID uuid.UUID) ActivityLogEntry {
	t.Helper()
	entry := ActivityLogEntry{
		ID:         uuid.New(),
		SupplierID: supplierID,
		Type:       ActivityStatusChange,
		Title:      "Application status updated",
		Actor:      domain.SystemActor(),
		CreatedAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Enqueue(context.Background(), entry))
	return entry
}

func TestRelayOncePublishesAndMarks(t *testing.T) {
	store := NewMemoryStore()
	pub := newSinkPublisher()
	relay := NewOutboxRelay(store, pub, "vendorhub.activity", 10, time.Second,
		logger.New("outbox-test", "error"), metrics.NewForTesting())

	supplierID := uuid.New()
	entry := stagedEntry(t, store, supplierID)

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.messages["vendorhub.activity"], 1)

	var payload struct {
		ID         string `json:"id"`
		SupplierID string `json:"supplier_id"`
		Type       string `json:"type"`
		OccurredAt string `json:"occurred_at"`
	}
	require.NoError(t, json.Unmarshal(pub.messages["vendorhub.activity"][0], &payload))
	assert.Equal(t, entry.ID.String(), payload.ID)
	assert.Equal(t, supplierID.String(), payload.SupplierID)
	assert.Equal(t, "status_change", payload.Type)

	// Published entries do not relay again.
	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRelayRetriesFailedPublishes(t *testing.T) {
	store := NewMemoryStore()
	pub := newSinkPublisher()
	relay := NewOutboxRelay(store, pub, "vendorhub.activity", 10, time.Second,
		logger.New("outbox-test", "error"), metrics.NewForTesting())

	flaky := uuid.New()
	healthy := uuid.New()
	stagedEntry(t, store, flaky)
	stagedEntry(t, store, healthy)
	pub.FailFor[flaky.String()] = errors.New("broker unavailable")

	n, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "healthy entry goes out, flaky one stays staged")

	// Broker recovers; the staged entry drains on the next pass.
	delete(pub.FailFor, flaky.String())
	n, err = relay.RelayOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	staged, err := store.Unpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestRelayHonorsMarkTime(t *testing.T) {
	store := NewMemoryStore()
	pub := newSinkPublisher()
	relay := NewOutboxRelay(store, pub, "vendorhub.activity", 10, time.Second,
		logger.New("outbox-test", "error"), metrics.NewForTesting())

	stagedEntry(t, store, uuid.New())
	at := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)

	_, err := relay.RelayOnce(ctx)
	require.NoError(t, err)

	staged, err := store.Unpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, staged)
}
