package supplier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/internal/trail"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/sentinel"
	"vendorhub/pkg/requestcontext"
)

func (s *SupplierServiceSuite) TestRequestProfileChange() {
	sup := s.register()

	s.Run("records a pending request with the previous values", func() {
		change, err := s.service.RequestProfileChange(s.ctx, sup.ID, map[string]string{
			domain.ProfileFieldCompanyName: "Acme Mining Ltd",
			domain.ProfileFieldEmail:       "Billing@Acme.Test",
		})
		s.Require().NoError(err)
		s.Equal(domain.ProfileChangePending, change.Status)
		s.Equal("Acme Mining Ltd", change.Requested[domain.ProfileFieldCompanyName])
		s.Equal("billing@acme.test", change.Requested[domain.ProfileFieldEmail])
		s.Equal("Acme Mining", change.Previous[domain.ProfileFieldCompanyName])
		s.Equal("ops@acme.test", change.Previous[domain.ProfileFieldEmail])

		// The supplier row stays untouched until an admin decides.
		got, err := s.store.Get(s.ctx, sup.ID)
		s.Require().NoError(err)
		s.Equal("Acme Mining", got.CompanyName)
		s.Equal("ops@acme.test", got.Email)
	})

	s.Run("request is narrated to the vendor", func() {
		timeline, err := s.trail.ListBySupplier(s.ctx, sup.ID, 10)
		s.Require().NoError(err)
		s.Require().NotEmpty(timeline)
		s.Equal(trail.ActivityProfileReview, timeline[0].Type)
		s.Equal(domain.ActorVendor, timeline[0].Actor.Type)
		s.Require().NotNil(timeline[0].Metadata.ProfileReview)
		s.Equal("requested", timeline[0].Metadata.ProfileReview.Decision)
		s.Equal([]string{domain.ProfileFieldCompanyName, domain.ProfileFieldEmail},
			timeline[0].Metadata.ProfileReview.Fields)
	})

	s.Run("one pending request per supplier", func() {
		_, err := s.service.RequestProfileChange(s.ctx, sup.ID, map[string]string{
			domain.ProfileFieldCategory: string(domain.CategoryLogistics),
		})
		s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)
	})

	s.Run("unknown fields are rejected", func() {
		other, err := s.service.Register(s.ctx, "Other Co", "other@test", domain.CategoryOther)
		s.Require().NoError(err)
		_, err = s.service.RequestProfileChange(s.ctx, other.ID, map[string]string{
			"status": "APPROVED",
		})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("values matching the current profile are rejected", func() {
		other, err := s.service.Register(s.ctx, "Same Co", "same@test", domain.CategoryOther)
		s.Require().NoError(err)
		_, err = s.service.RequestProfileChange(s.ctx, other.ID, map[string]string{
			domain.ProfileFieldEmail: "SAME@TEST",
		})
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})
}

func (s *SupplierServiceSuite) TestReviewProfileChange() {
	adminID := uuid.New()
	sup := s.register()
	change, err := s.service.RequestProfileChange(s.ctx, sup.ID, map[string]string{
		domain.ProfileFieldCompanyName: "Acme Mining Ltd",
		domain.ProfileFieldCategory:    string(domain.CategoryLogistics),
	})
	s.Require().NoError(err)

	s.Run("approval applies the values in the same decision", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(time.Minute))
		reviewed, err := s.service.ReviewProfileChange(later, change.ID, true, adminID, "Ops Admin", "verified with registry")
		s.Require().NoError(err)
		s.Equal(domain.ProfileChangeApproved, reviewed.Status)
		s.Require().NotNil(reviewed.ReviewedBy)
		s.Equal(adminID, *reviewed.ReviewedBy)

		got, err := s.store.Get(s.ctx, sup.ID)
		s.Require().NoError(err)
		s.Equal("Acme Mining Ltd", got.CompanyName)
		s.Equal(domain.CategoryLogistics, got.Category)

		timeline, err := s.trail.ListBySupplier(s.ctx, sup.ID, 10)
		s.Require().NoError(err)
		s.Require().NotEmpty(timeline)
		s.Equal(domain.ActorAdmin, timeline[0].Actor.Type)
		s.Require().NotNil(timeline[0].Metadata.ProfileReview)
		s.Equal("approved", timeline[0].Metadata.ProfileReview.Decision)
	})

	s.Run("reviewing a settled change is a conflict", func() {
		_, err := s.service.ReviewProfileChange(s.ctx, change.ID, false, adminID, "Ops Admin", "")
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("rejection leaves the profile untouched", func() {
		other, err := s.service.Register(s.ctx, "Keep Co", "keep@test", domain.CategoryOther)
		s.Require().NoError(err)
		ch, err := s.service.RequestProfileChange(s.ctx, other.ID, map[string]string{
			domain.ProfileFieldEmail: "new@keep.test",
		})
		s.Require().NoError(err)

		rejected, err := s.service.ReviewProfileChange(s.ctx, ch.ID, false, adminID, "Ops Admin", "domain not verified")
		s.Require().NoError(err)
		s.Equal(domain.ProfileChangeRejected, rejected.Status)
		s.Equal("domain not verified", rejected.ReviewNotes)

		got, err := s.store.Get(s.ctx, other.ID)
		s.Require().NoError(err)
		s.Equal("keep@test", got.Email)
	})

	s.Run("a settled request unblocks the next one", func() {
		_, err := s.service.RequestProfileChange(s.ctx, sup.ID, map[string]string{
			domain.ProfileFieldEmail: "finance@acme.test",
		})
		s.Require().NoError(err)

		queue, err := s.service.ListProfileChanges(s.ctx, domain.ProfileChangePending, 50)
		s.Require().NoError(err)
		pending := 0
		for _, c := range queue {
			if c.SupplierID == sup.ID {
				pending++
			}
		}
		s.Equal(1, pending)

		mine, err := s.service.SupplierProfileChanges(s.ctx, sup.ID, 50)
		s.Require().NoError(err)
		s.Len(mine, 2)
	})
}
