package supplier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/internal/trail"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/requestcontext"
)

// RequestProfileChange records a vendor's request to change approval-gated
// profile fields. Nothing touches the supplier row until an admin approves;
// the request and its trail narration commit together.
func (s *Service) RequestProfileChange(ctx context.Context, supplierID uuid.UUID, changes map[string]string) (domain.ProfileChange, error) {
	ctx, span := s.tracer.Start(ctx, "supplier.RequestProfileChange")
	defer span.End()

	if len(changes) == 0 {
		return domain.ProfileChange{}, dErrors.New(dErrors.CodeBadRequest, "no changes requested")
	}

	var created domain.ProfileChange
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		sup, err := s.store.Get(ctx, supplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}

		requested := make(map[string]string, len(changes))
		previous := make(map[string]string, len(changes))
		for field, value := range changes {
			current, ok := profileFieldValue(sup, field)
			if !ok {
				return dErrors.New(dErrors.CodeBadRequest,
					fmt.Sprintf("field %s cannot be changed by vendors", field))
			}
			value = strings.TrimSpace(value)
			if field == domain.ProfileFieldEmail {
				value = strings.ToLower(value)
			}
			if value == "" {
				return dErrors.New(dErrors.CodeBadRequest, "empty value for "+field)
			}
			if value == current {
				continue
			}
			requested[field] = value
			previous[field] = current
		}
		if len(requested) == 0 {
			return dErrors.New(dErrors.CodeBadRequest, "requested values match the current profile")
		}

		change := domain.ProfileChange{
			ID:         uuid.New(),
			SupplierID: supplierID,
			Requested:  requested,
			Previous:   previous,
			Status:     domain.ProfileChangePending,
			CreatedAt:  requestcontext.Now(ctx),
		}
		if err := s.store.CreateProfileChange(ctx, change); err != nil {
			return fmt.Errorf("create profile change: %w", err)
		}

		entry := profileReviewEntry(change, sup.CompanyName, "requested",
			domain.Actor{Type: domain.ActorVendor, Name: "supplier"})
		if err := s.recorder.LogActivity(ctx, entry); err != nil {
			return err
		}
		created = change
		return nil
	})
	if err != nil {
		return domain.ProfileChange{}, err
	}

	s.logger.InfoContext(ctx, "profile change requested",
		"supplier_id", supplierID,
		"change_id", created.ID,
		"fields", changedFields(created.Requested),
	)
	return created, nil
}

// ReviewProfileChange applies an admin decision to a pending request.
// Approval writes the requested values onto the supplier row in the same
// transaction as the decision; rejection records the decision and leaves
// the profile untouched.
func (s *Service) ReviewProfileChange(ctx context.Context, changeID uuid.UUID, approve bool, adminID uuid.UUID, adminName, notes string) (domain.ProfileChange, error) {
	ctx, span := s.tracer.Start(ctx, "supplier.ReviewProfileChange")
	defer span.End()

	var updated domain.ProfileChange
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		change, err := s.store.GetProfileChange(ctx, changeID)
		if err != nil {
			return fmt.Errorf("load profile change: %w", err)
		}
		if change.Status != domain.ProfileChangePending {
			return dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("profile change already %s", strings.ToLower(string(change.Status))))
		}

		sup, err := s.store.Get(ctx, change.SupplierID)
		if err != nil {
			return fmt.Errorf("load supplier: %w", err)
		}

		now := requestcontext.Now(ctx)
		reviewer := adminID
		decision := "rejected"
		change.Status = domain.ProfileChangeRejected
		if approve {
			change.Status = domain.ProfileChangeApproved
			decision = "approved"
		}
		change.ReviewedBy = &reviewer
		change.ReviewedAt = &now
		change.ReviewNotes = notes
		if err := s.store.UpdateProfileChange(ctx, change); err != nil {
			return fmt.Errorf("update profile change: %w", err)
		}

		if approve {
			applyProfileChange(&sup, change.Requested)
			sup.UpdatedAt = now
			if err := s.store.Update(ctx, sup); err != nil {
				return fmt.Errorf("apply profile change: %w", err)
			}
		}

		entry := profileReviewEntry(change, sup.CompanyName, decision,
			domain.Actor{Type: domain.ActorAdmin, ID: &reviewer, Name: adminName})
		if err := s.recorder.LogActivity(ctx, entry); err != nil {
			return err
		}
		updated = change
		return nil
	})
	if err != nil {
		return domain.ProfileChange{}, err
	}

	s.logger.InfoContext(ctx, "profile change reviewed",
		"change_id", changeID,
		"status", updated.Status,
		"admin_id", adminID,
	)
	return updated, nil
}

// ListProfileChanges returns the admin review queue, optionally filtered by
// status.
func (s *Service) ListProfileChanges(ctx context.Context, status domain.ProfileChangeStatus, limit int) ([]domain.ProfileChange, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListProfileChanges(ctx, status, limit)
}

// SupplierProfileChanges returns one supplier's own requests, newest first.
func (s *Service) SupplierProfileChanges(ctx context.Context, supplierID uuid.UUID, limit int) ([]domain.ProfileChange, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListSupplierProfileChanges(ctx, supplierID, limit)
}

func profileFieldValue(sup domain.Supplier, field string) (string, bool) {
	switch field {
	case domain.ProfileFieldCompanyName:
		return sup.CompanyName, true
	case domain.ProfileFieldEmail:
		return sup.Email, true
	case domain.ProfileFieldCategory:
		return string(sup.Category), true
	}
	return "", false
}

func applyProfileChange(sup *domain.Supplier, changes map[string]string) {
	if v, ok := changes[domain.ProfileFieldCompanyName]; ok {
		sup.CompanyName = v
	}
	if v, ok := changes[domain.ProfileFieldEmail]; ok {
		sup.Email = v
	}
	if v, ok := changes[domain.ProfileFieldCategory]; ok {
		sup.Category = domain.BusinessCategory(v)
	}
}

func profileReviewEntry(change domain.ProfileChange, companyName, decision string, actor domain.Actor) trail.ActivityLogEntry {
	fields := changedFields(change.Requested)
	return trail.ActivityLogEntry{
		SupplierID:  change.SupplierID,
		Type:        trail.ActivityProfileReview,
		Title:       "Profile change " + decision,
		Description: fmt.Sprintf("Change to %s for %s %s", strings.Join(fields, ", "), companyName, decision),
		Actor:       actor,
		Metadata: trail.Metadata{
			Version: trail.MetadataVersion,
			Kind:    trail.ActivityProfileReview,
			ProfileReview: &trail.ProfileReviewMeta{
				ChangeID: change.ID.String(),
				Fields:   fields,
				Decision: decision,
			},
		},
	}
}

func changedFields(requested map[string]string) []string {
	fields := make([]string, 0, len(requested))
	for field := range requested {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
