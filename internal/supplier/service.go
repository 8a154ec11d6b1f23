// Package supplier owns the onboarding lifecycle: registration, submission,
// admin review decisions, and retention-driven purge of rejected
// applications. Every status change goes through the trail recorder inside
// the same transaction as the supplier row update.
package supplier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vendorhub/internal/domain"
	"vendorhub/internal/trail"
	dErrors "vendorhub/pkg/domain-errors"
	txpkg "vendorhub/pkg/platform/tx"
	"vendorhub/pkg/requestcontext"
)

// reviewTransitions lists, per current status, the statuses an admin review
// may move an application to. Registration and submission have their own
// entry points and are not review decisions.
var reviewTransitions = map[domain.SupplierStatus][]domain.SupplierStatus{
	domain.StatusSubmitted:    {domain.StatusUnderReview, domain.StatusRejected},
	domain.StatusUnderReview:  {domain.StatusApproved, domain.StatusNeedMoreInfo, domain.StatusRejected},
	domain.StatusNeedMoreInfo: {domain.StatusUnderReview, domain.StatusRejected},
}

type Service struct {
	store    Store
	recorder *trail.Recorder
	runner   txpkg.Runner
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewService(store Store, recorder *trail.Recorder, runner txpkg.Runner, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		runner:   runner,
		logger:   logger,
		tracer:   otel.Tracer("vendorhub/supplier"),
	}
}

// Register creates a new INCOMPLETE application.
func (s *Service) Register(ctx context.Context, companyName, email string, category domain.BusinessCategory) (domain.Supplier, error) {
	companyName = strings.TrimSpace(companyName)
	email = strings.ToLower(strings.TrimSpace(email))
	if companyName == "" || email == "" {
		return domain.Supplier{}, dErrors.New(dErrors.CodeBadRequest, "company name and email are required")
	}

	now := requestcontext.Now(ctx)
	sup := domain.Supplier{
		ID:          uuid.New(),
		CompanyName: companyName,
		Email:       email,
		Category:    category,
		Status:      domain.StatusIncomplete,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, sup); err != nil {
		return domain.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	s.logger.InfoContext(ctx, "supplier registered",
		"supplier_id", sup.ID,
		"category", sup.Category,
	)
	return sup, nil
}

// Get returns one supplier.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Supplier, error) {
	return s.store.Get(ctx, id)
}

// List returns suppliers, optionally filtered by status.
func (s *Service) List(ctx context.Context, status domain.SupplierStatus, limit int) ([]domain.Supplier, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.List(ctx, status, limit)
}

// Submit moves an INCOMPLETE application to SUBMITTED. This is the one
// transition the vendor performs, and the trail attributes it so.
func (s *Service) Submit(ctx context.Context, supplierID uuid.UUID) (domain.Supplier, error) {
	ctx, span := s.tracer.Start(ctx, "supplier.Submit")
	defer span.End()

	var updated domain.Supplier
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		sup, err := s.store.Get(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}
		if sup.Status != domain.StatusIncomplete {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("cannot submit application in status %s", sup.Status))
		}

		old := sup.Status
		now := requestcontext.Now(ctx)
		sup.Status = domain.StatusSubmitted
		sup.SubmittedAt = &now
		sup.UpdatedAt = now
		if err := s.store.Update(ctx, sup); err != nil {
			return fmt.Errorf("update supplier: %w", err)
		}

		actor := domain.ClassifySupplierActor(old, sup.Status, nil, nil, "")
		if err := s.recorder.RecordSupplierTransition(ctx, sup.ID, old, sup.Status, actor, ""); err != nil {
			return err
		}
		updated = sup
		return nil
	})
	if err != nil {
		return domain.Supplier{}, err
	}
	return updated, nil
}

// Review applies an admin decision. The transition is validated against the
// review state machine, the supplier row and both trail rows commit in one
// transaction, and the trail attributes the change to the reviewing admin.
func (s *Service) Review(ctx context.Context, supplierID uuid.UUID, newStatus domain.SupplierStatus, adminID uuid.UUID, adminName, notes string) (domain.Supplier, error) {
	ctx, span := s.tracer.Start(ctx, "supplier.Review")
	defer span.End()

	var updated domain.Supplier
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		sup, err := s.store.Get(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}
		if sup.Status == newStatus {
			// Idempotent re-apply of the same decision; no trail rows.
			updated = sup
			return nil
		}
		if !allowedReview(sup.Status, newStatus) {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("cannot move application from %s to %s", sup.Status, newStatus))
		}

		old := sup.Status
		prevReviewedBy := sup.ReviewedBy
		now := requestcontext.Now(ctx)
		reviewer := adminID
		sup.Status = newStatus
		sup.ReviewedBy = &reviewer
		sup.ReviewedAt = &now
		sup.UpdatedAt = now
		if err := s.store.Update(ctx, sup); err != nil {
			return fmt.Errorf("update supplier: %w", err)
		}

		actor := domain.ClassifySupplierActor(old, newStatus, prevReviewedBy, sup.ReviewedBy, adminName)
		if err := s.recorder.RecordSupplierTransition(ctx, sup.ID, old, newStatus, actor, notes); err != nil {
			return err
		}
		updated = sup
		return nil
	})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logger.InfoContext(ctx, "supplier reviewed",
		"supplier_id", supplierID,
		"status", updated.Status,
		"admin_id", adminID,
	)
	return updated, nil
}

// PurgeRejected deletes rejected applications whose review predates the
// retention window. The deletion cascades to documents, alerts and trail
// rows; the purge record is staged to the activity outbox, which carries no
// foreign key and so survives as the durable audit of the purge.
func (s *Service) PurgeRejected(ctx context.Context, retention time.Duration) (int, error) {
	ctx, span := s.tracer.Start(ctx, "supplier.PurgeRejected")
	defer span.End()

	cutoff := requestcontext.Now(ctx).Add(-retention)
	candidates, err := s.store.RejectedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("load purge candidates: %w", err)
	}

	purged := 0
	for _, sup := range candidates {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			entry := trail.ActivityLogEntry{
				SupplierID:  sup.ID,
				Type:        trail.ActivitySupplierPurged,
				Title:       "Rejected application purged",
				Description: fmt.Sprintf("Application for %s purged after retention window", sup.CompanyName),
				Actor:       domain.SystemActor(),
				Metadata: trail.Metadata{
					Version: trail.MetadataVersion,
					Kind:    trail.ActivitySupplierPurged,
					Extra: map[string]string{
						"company_name": sup.CompanyName,
						"category":     string(sup.Category),
					},
				},
			}
			if err := s.recorder.LogActivity(ctx, entry); err != nil {
				return err
			}
			return s.store.Delete(ctx, sup.ID)
		})
		if err != nil {
			return purged, fmt.Errorf("purge supplier %s: %w", sup.ID, err)
		}
		purged++
		s.logger.InfoContext(ctx, "rejected supplier purged",
			"supplier_id", sup.ID,
			"reviewed_at", sup.ReviewedAt,
		)
	}
	return purged, nil
}

func allowedReview(from, to domain.SupplierStatus) bool {
	for _, allowed := range reviewTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
