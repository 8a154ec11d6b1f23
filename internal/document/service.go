// Package document owns uploaded compliance artifacts: vendor uploads and
// re-uploads, admin verification decisions, and expiry date corrections.
// Verification changes and expiry evaluation happen in one transaction so a
// committed VERIFIED document already carries any alert its expiry warrants.
package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vendorhub/internal/domain"
	"vendorhub/internal/expiry"
	"vendorhub/internal/trail"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/sentinel"
	txpkg "vendorhub/pkg/platform/tx"
	"vendorhub/pkg/requestcontext"
)

// SupplierReader resolves the owning supplier; the document service needs
// its status to gate alert evaluation.
type SupplierReader interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Supplier, error)
}

// AlertEvaluator evaluates a document against the expiry thresholds. The
// expiry service satisfies this.
type AlertEvaluator interface {
	EvaluateDocument(ctx context.Context, doc domain.Document, supplierStatus domain.SupplierStatus) (expiry.EvaluationResult, error)
}

type Service struct {
	store     Store
	suppliers SupplierReader
	recorder  *trail.Recorder
	evaluator AlertEvaluator
	runner    txpkg.Runner
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewService(store Store, suppliers SupplierReader, recorder *trail.Recorder, evaluator AlertEvaluator, runner txpkg.Runner, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		suppliers: suppliers,
		recorder:  recorder,
		evaluator: evaluator,
		runner:    runner,
		logger:    logger,
		tracer:    otel.Tracer("vendorhub/document"),
	}
}

// Upload stores a new document, or resets an existing one of the same type
// back to PENDING when the vendor re-uploads. Either way uploads are
// narrated in the activity log, and a reset is recorded as a vendor-driven
// verification transition.
func (s *Service) Upload(ctx context.Context, supplierID uuid.UUID, docType domain.DocumentType, storageKey string, expiryDate *time.Time) (domain.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Upload")
	defer span.End()

	if storageKey == "" {
		return domain.Document{}, dErrors.New(dErrors.CodeBadRequest, "storage key is required")
	}
	if _, err := s.suppliers.Get(ctx, supplierID); err != nil {
		return domain.Document{}, fmt.Errorf("load supplier: %w", err)
	}

	var result domain.Document
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		now := requestcontext.Now(ctx)

		existing, err := s.store.GetByType(ctx, supplierID, docType)
		switch {
		case err == nil:
			old := existing.Status
			prevVerifiedBy := existing.VerifiedBy
			existing.Status = domain.VerificationPending
			existing.StorageKey = storageKey
			existing.ExpiryDate = expiryDate
			existing.VerifiedBy = nil
			existing.UpdatedAt = now
			if err := s.store.Update(ctx, existing); err != nil {
				return fmt.Errorf("update document: %w", err)
			}
			actor := domain.ClassifyDocumentActor(old, domain.VerificationPending, prevVerifiedBy, nil, "")
			if err := s.recorder.RecordDocumentTransition(ctx, existing.ID, supplierID, docType, old, domain.VerificationPending, actor, "re-uploaded"); err != nil {
				return err
			}
			result = existing
		case errors.Is(err, sentinel.ErrNotFound):
			doc := domain.Document{
				ID:         uuid.New(),
				SupplierID: supplierID,
				Type:       docType,
				Status:     domain.VerificationPending,
				ExpiryDate: expiryDate,
				StorageKey: storageKey,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.store.Create(ctx, doc); err != nil {
				return fmt.Errorf("create document: %w", err)
			}
			result = doc
		default:
			return fmt.Errorf("load document: %w", err)
		}

		return s.recorder.LogActivity(ctx, trail.ActivityLogEntry{
			SupplierID:  supplierID,
			Type:        trail.ActivityDocumentUpload,
			Title:       "Document uploaded",
			Description: fmt.Sprintf("Document %s uploaded", docType),
			Actor:       domain.Actor{Type: domain.ActorVendor, Name: "supplier"},
			Metadata: trail.Metadata{
				Version: trail.MetadataVersion,
				Kind:    trail.ActivityDocumentUpload,
				DocumentUpload: &trail.DocumentUploadMeta{
					DocumentID:   result.ID.String(),
					DocumentType: string(docType),
					StorageKey:   storageKey,
				},
			},
		})
	})
	if err != nil {
		return domain.Document{}, err
	}
	return result, nil
}

// Verify marks a document VERIFIED and evaluates it against the expiry
// thresholds in the same transaction. A document verified 20 days before its
// expiry date is born with its 30-day alert.
func (s *Service) Verify(ctx context.Context, documentID, adminID uuid.UUID, adminName string, expiryDate *time.Time, notes string) (domain.Document, error) {
	return s.review(ctx, documentID, domain.VerificationVerified, adminID, adminName, expiryDate, notes)
}

// Reject marks a document REJECTED.
func (s *Service) Reject(ctx context.Context, documentID, adminID uuid.UUID, adminName, notes string) (domain.Document, error) {
	return s.review(ctx, documentID, domain.VerificationRejected, adminID, adminName, nil, notes)
}

func (s *Service) review(ctx context.Context, documentID uuid.UUID, newStatus domain.VerificationStatus, adminID uuid.UUID, adminName string, expiryDate *time.Time, notes string) (domain.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.review")
	defer span.End()

	var result domain.Document
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := s.store.Get(ctx, documentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		if doc.Status == newStatus {
			result = doc
			return nil
		}

		sup, err := s.suppliers.Get(ctx, doc.SupplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}

		old := doc.Status
		prevVerifiedBy := doc.VerifiedBy
		reviewer := adminID
		doc.Status = newStatus
		doc.VerifiedBy = &reviewer
		if expiryDate != nil {
			doc.ExpiryDate = expiryDate
		}
		doc.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		actor := domain.ClassifyDocumentActor(old, newStatus, prevVerifiedBy, doc.VerifiedBy, adminName)
		if err := s.recorder.RecordDocumentTransition(ctx, doc.ID, doc.SupplierID, doc.Type, old, newStatus, actor, notes); err != nil {
			return err
		}

		if newStatus == domain.VerificationVerified {
			if _, err := s.evaluator.EvaluateDocument(ctx, doc, sup.Status); err != nil {
				return fmt.Errorf("evaluate expiry: %w", err)
			}
		}
		result = doc
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}

	s.logger.InfoContext(ctx, "document reviewed",
		"document_id", documentID,
		"status", result.Status,
		"admin_id", adminID,
	)
	return result, nil
}

// SetExpiryDate corrects a document's expiry date and re-evaluates it. A
// date moved closer may create a more urgent alert immediately; a date moved
// further out never retracts alerts already issued.
func (s *Service) SetExpiryDate(ctx context.Context, documentID uuid.UUID, expiryDate time.Time) (domain.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.SetExpiryDate")
	defer span.End()

	var result domain.Document
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := s.store.Get(ctx, documentID)
		if err != nil {
			return fmt.Errorf("load document: %w", err)
		}
		sup, err := s.suppliers.Get(ctx, doc.SupplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}

		doc.ExpiryDate = &expiryDate
		doc.UpdatedAt = requestcontext.Now(ctx)
		if err := s.store.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		if _, err := s.evaluator.EvaluateDocument(ctx, doc, sup.Status); err != nil {
			return fmt.Errorf("evaluate expiry: %w", err)
		}
		result = doc
		return nil
	})
	if err != nil {
		return domain.Document{}, err
	}
	return result, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	return s.store.Get(ctx, id)
}

// ListBySupplier returns a supplier's documents.
func (s *Service) ListBySupplier(ctx context.Context, supplierID uuid.UUID) ([]domain.Document, error) {
	return s.store.ListBySupplier(ctx, supplierID)
}

// MissingDocuments reports which required documents the supplier has not
// uploaded yet, per the category catalogue.
func (s *Service) MissingDocuments(ctx context.Context, supplierID uuid.UUID) ([]domain.DocumentType, error) {
	sup, err := s.suppliers.Get(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("load supplier: %w", err)
	}
	docs, err := s.store.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	uploaded := make(map[domain.DocumentType]bool, len(docs))
	for _, d := range docs {
		uploaded[d.Type] = true
	}
	var missing []domain.DocumentType
	for _, required := range domain.RequiredDocuments(sup.Category) {
		if !uploaded[required] {
			missing = append(missing, required)
		}
	}
	return missing, nil
}
