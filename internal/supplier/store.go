package supplier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
)

// Store persists suppliers. Implementations return sentinel.ErrNotFound for
// unknown IDs and sentinel.ErrAlreadyExists for duplicate emails.
type Store interface {
	Create(ctx context.Context, s domain.Supplier) error
	Get(ctx context.Context, id uuid.UUID) (domain.Supplier, error)
	GetByEmail(ctx context.Context, email string) (domain.Supplier, error)
	// Update persists the full supplier row keyed by ID.
	Update(ctx context.Context, s domain.Supplier) error
	// List returns suppliers filtered by status; an empty status means all.
	List(ctx context.Context, status domain.SupplierStatus, limit int) ([]domain.Supplier, error)
	// RejectedBefore returns REJECTED suppliers whose last review happened
	// before the cutoff, the purge candidates.
	RejectedBefore(ctx context.Context, cutoff time.Time) ([]domain.Supplier, error)
	// Delete removes the supplier and, through FK cascade, its documents,
	// alerts, history and activity rows.
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateProfileChange inserts a pending change request. A supplier may
	// hold at most one PENDING request; a second returns
	// sentinel.ErrAlreadyExists.
	CreateProfileChange(ctx context.Context, c domain.ProfileChange) error
	GetProfileChange(ctx context.Context, id uuid.UUID) (domain.ProfileChange, error)
	// UpdateProfileChange persists the full request row keyed by ID.
	UpdateProfileChange(ctx context.Context, c domain.ProfileChange) error
	// ListProfileChanges returns requests filtered by status, newest first;
	// an empty status means all.
	ListProfileChanges(ctx context.Context, status domain.ProfileChangeStatus, limit int) ([]domain.ProfileChange, error)
	// ListSupplierProfileChanges returns one supplier's requests, newest
	// first.
	ListSupplierProfileChanges(ctx context.Context, supplierID uuid.UUID, limit int) ([]domain.ProfileChange, error)
}
