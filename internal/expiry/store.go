package expiry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
)

// AlertStore persists expiry alerts. Insert must enforce uniqueness on
// (document_id, bucket) and report a conflicting insert as
// sentinel.ErrAlreadyExists rather than a generic failure — the scheduler
// treats that outcome as success.
type AlertStore interface {
	// Insert adds a new alert. Returns sentinel.ErrAlreadyExists when an
	// alert for the same (document, bucket) pair is already present.
	Insert(ctx context.Context, alert Alert) error

	// Pending returns undelivered alerts for suppliers in an actionable
	// status, ordered by (expiry_date asc, bucket urgency asc); today
	// parameterizes the days-until-expiry computation.
	Pending(ctx context.Context, today time.Time, limit int) ([]PendingAlert, error)

	// MarkSent flips delivery state, stamps the send time and bumps the
	// reminder counter. found=false when the alert does not exist.
	MarkSent(ctx context.Context, alertID uuid.UUID, at time.Time) (found bool, err error)

	// Acknowledge sets acknowledgement state iff the alert belongs to
	// supplierID. found=false on a missing alert or an ownership mismatch,
	// with no way for the caller to tell which.
	Acknowledge(ctx context.Context, alertID, supplierID uuid.UUID, at time.Time) (found bool, err error)

	// ListByDocument returns all alerts for a document, most recent first.
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Alert, error)

	// Stats aggregates alert counts; today parameterizes the expired and
	// severity classifications.
	Stats(ctx context.Context, today time.Time) (Stats, error)
}

// DocumentReader is the slice of the document store the scheduler needs.
type DocumentReader interface {
	// ExpiringCandidates returns VERIFIED documents with a non-null expiry
	// date belonging to suppliers in an actionable status.
	ExpiringCandidates(ctx context.Context) ([]CandidateDocument, error)

	// SupplierExpiring returns the vendor-facing expiring view for one
	// supplier, within the day threshold, soonest expiry first.
	SupplierExpiring(ctx context.Context, supplierID uuid.UUID, today time.Time, withinDays int) ([]SupplierExpiringDocument, error)
}

// CandidateDocument is a sweep work item: just enough document and supplier
// state to evaluate a bucket without re-reading the world.
type CandidateDocument struct {
	DocumentID     uuid.UUID
	SupplierID     uuid.UUID
	DocumentType   domain.DocumentType
	ExpiryDate     time.Time
	SupplierStatus domain.SupplierStatus
}
