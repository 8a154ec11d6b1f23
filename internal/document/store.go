package document

import (
	"context"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
)

// Store persists documents. The postgres and memory implementations also
// satisfy expiry.DocumentReader, feeding the sweep and the vendor-facing
// expiring views.
type Store interface {
	Create(ctx context.Context, doc domain.Document) error
	Get(ctx context.Context, id uuid.UUID) (domain.Document, error)
	// GetByType returns the supplier's document of the given type.
	GetByType(ctx context.Context, supplierID uuid.UUID, docType domain.DocumentType) (domain.Document, error)
	Update(ctx context.Context, doc domain.Document) error
	ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]domain.Document, error)
}
