package trail

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistoryStore persists immutable status transition records. Append methods
// must route through a transaction carried in ctx when one is present so the
// history row commits with the entity mutation it describes.
type HistoryStore interface {
	AppendSupplier(ctx context.Context, entry SupplierStatusHistory) error
	AppendDocument(ctx context.Context, entry DocumentStatusHistory) error
	ListSupplier(ctx context.Context, supplierID uuid.UUID) ([]SupplierStatusHistory, error)
	ListDocument(ctx context.Context, documentID uuid.UUID) ([]DocumentStatusHistory, error)
}

// ActivityStore persists the supplier-scoped activity log.
type ActivityStore interface {
	Append(ctx context.Context, entry ActivityLogEntry) error
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, limit int) ([]ActivityLogEntry, error)
}

// OutboxStore stages activity entries for asynchronous publishing. Enqueue
// participates in the caller's transaction; the relay drains committed
// entries on its own schedule.
type OutboxStore interface {
	Enqueue(ctx context.Context, entry ActivityLogEntry) error
	Unpublished(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// OutboxEntry is a staged activity event awaiting publication.
type OutboxEntry struct {
	ID         uuid.UUID
	SupplierID uuid.UUID
	Payload    []byte
	CreatedAt  time.Time
}
