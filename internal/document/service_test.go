package document

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vendorhub/internal/domain"
	"vendorhub/internal/expiry"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/trail"
	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/sentinel"
	txpkg "vendorhub/pkg/platform/tx"
	"vendorhub/pkg/requestcontext"
)

type stubSuppliers struct {
	suppliers map[uuid.UUID]domain.Supplier
}

func (s *stubSuppliers) Get(_ context.Context, id uuid.UUID) (domain.Supplier, error) {
	sup, ok := s.suppliers[id]
	if !ok {
		return domain.Supplier{}, sentinel.ErrNotFound
	}
	return sup, nil
}

type DocumentServiceSuite struct {
	suite.Suite
	store     *MemoryStore
	suppliers *stubSuppliers
	alerts    *expiry.MemoryAlertStore
	trail     *trail.MemoryStore
	service   *Service
	ctx       context.Context
	now       time.Time
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.suppliers = &stubSuppliers{suppliers: make(map[uuid.UUID]domain.Supplier)}
	s.alerts = expiry.NewMemoryAlertStore(nil)
	s.trail = trail.NewMemoryStore()

	log := logger.New("document-test", "error")
	m := metrics.NewForTesting()
	recorder := trail.NewRecorder(s.trail, s.trail, log, m)
	runner := txpkg.NewMemoryRunner()
	evaluator := expiry.NewService(s.alerts, s.store, recorder, runner, log, m)
	s.service = NewService(s.store, s.suppliers, recorder, evaluator, runner, log)

	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *DocumentServiceSuite) addSupplier(status domain.SupplierStatus) domain.Supplier {
	sup := domain.Supplier{
		ID:          uuid.New(),
		CompanyName: "Acme Mining",
		Email:       "ops@acme.test",
		Category:    domain.CategoryManufacturing,
		Status:      status,
		Active:      true,
	}
	s.suppliers.suppliers[sup.ID] = sup
	s.store.SupplierStatus = func(id uuid.UUID) (domain.SupplierStatus, bool) {
		got, ok := s.suppliers.suppliers[id]
		return got.Status, ok
	}
	return sup
}

func (s *DocumentServiceSuite) expiryIn(days int) *time.Time {
	t := s.now.AddDate(0, 0, days)
	return &t
}

// at shifts the request clock so history ordering is deterministic.
func (s *DocumentServiceSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *DocumentServiceSuite) TestUpload() {
	sup := s.addSupplier(domain.StatusIncomplete)

	doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocTaxClearance, "docs/tax.pdf", s.expiryIn(120))
	s.Require().NoError(err)
	s.Equal(domain.VerificationPending, doc.Status)
	s.Equal("docs/tax.pdf", doc.StorageKey)

	s.Run("narrated in the activity log", func() {
		timeline, err := s.trail.ListBySupplier(s.ctx, sup.ID, 10)
		s.Require().NoError(err)
		s.Require().Len(timeline, 1)
		s.Equal(trail.ActivityDocumentUpload, timeline[0].Type)
		s.Require().NotNil(timeline[0].Metadata.DocumentUpload)
		s.Equal(doc.ID.String(), timeline[0].Metadata.DocumentUpload.DocumentID)
	})

	s.Run("requires a storage key", func() {
		_, err := s.service.Upload(s.ctx, sup.ID, domain.DocCompanyProfile, "", nil)
		s.Require().Error(err)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown supplier", func() {
		_, err := s.service.Upload(s.ctx, uuid.New(), domain.DocCompanyProfile, "docs/x.pdf", nil)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *DocumentServiceSuite) TestReUploadResetsVerification() {
	sup := s.addSupplier(domain.StatusUnderReview)
	adminID := uuid.New()

	doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocTaxClearance, "docs/tax-v1.pdf", s.expiryIn(120))
	s.Require().NoError(err)
	_, err = s.service.Verify(s.at(time.Minute), doc.ID, adminID, "Ops Admin", nil, "checked")
	s.Require().NoError(err)

	again, err := s.service.Upload(s.at(2*time.Minute), sup.ID, domain.DocTaxClearance, "docs/tax-v2.pdf", s.expiryIn(400))
	s.Require().NoError(err)
	s.Equal(doc.ID, again.ID)
	s.Equal(domain.VerificationPending, again.Status)
	s.Equal("docs/tax-v2.pdf", again.StorageKey)
	s.Nil(again.VerifiedBy)

	s.Run("attributes the reset to the vendor", func() {
		history, err := s.trail.ListDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal(domain.ActorVendor, history[0].Actor.Type)
		s.Equal(domain.VerificationPending, history[0].NewStatus)
	})
}

func (s *DocumentServiceSuite) TestVerify() {
	sup := s.addSupplier(domain.StatusApproved)
	adminID := uuid.New()

	s.Run("verifying inside a threshold creates the alert in the same call", func() {
		doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocTaxClearance, "docs/tax.pdf", s.expiryIn(20))
		s.Require().NoError(err)

		verified, err := s.service.Verify(s.ctx, doc.ID, adminID, "Ops Admin", nil, "looks valid")
		s.Require().NoError(err)
		s.Equal(domain.VerificationVerified, verified.Status)
		s.Require().NotNil(verified.VerifiedBy)
		s.Equal(adminID, *verified.VerifiedBy)

		alerts, err := s.alerts.ListByDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Require().Len(alerts, 1)
		s.Equal(expiry.Bucket30Days, alerts[0].Bucket)
	})

	s.Run("verifying far from expiry creates no alert", func() {
		doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocVATCertificate, "docs/vat.pdf", s.expiryIn(200))
		s.Require().NoError(err)
		_, err = s.service.Verify(s.ctx, doc.ID, adminID, "Ops Admin", nil, "")
		s.Require().NoError(err)

		alerts, err := s.alerts.ListByDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Empty(alerts)
	})

	s.Run("re-verifying is idempotent", func() {
		doc, err := s.store.GetByType(s.ctx, sup.ID, domain.DocTaxClearance)
		s.Require().NoError(err)
		_, err = s.service.Verify(s.ctx, doc.ID, adminID, "Ops Admin", nil, "")
		s.Require().NoError(err)

		history, err := s.trail.ListDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Len(history, 1)
	})
}

func (s *DocumentServiceSuite) TestReject() {
	sup := s.addSupplier(domain.StatusUnderReview)
	adminID := uuid.New()

	doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocCompanyProfile, "docs/profile.pdf", nil)
	s.Require().NoError(err)

	rejected, err := s.service.Reject(s.ctx, doc.ID, adminID, "Ops Admin", "illegible scan")
	s.Require().NoError(err)
	s.Equal(domain.VerificationRejected, rejected.Status)

	history, err := s.trail.ListDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.ActorAdmin, history[0].Actor.Type)
	s.Equal("illegible scan", history[0].Notes)

	alerts, err := s.alerts.ListByDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Empty(alerts)
}

func (s *DocumentServiceSuite) TestSetExpiryDate() {
	sup := s.addSupplier(domain.StatusApproved)
	adminID := uuid.New()

	doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocTaxClearance, "docs/tax.pdf", s.expiryIn(120))
	s.Require().NoError(err)
	_, err = s.service.Verify(s.ctx, doc.ID, adminID, "Ops Admin", nil, "")
	s.Require().NoError(err)

	s.Run("moving the date closer raises an alert immediately", func() {
		_, err := s.service.SetExpiryDate(s.ctx, doc.ID, s.now.AddDate(0, 0, 5))
		s.Require().NoError(err)

		alerts, err := s.alerts.ListByDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Require().Len(alerts, 1)
		s.Equal(expiry.Bucket7Days, alerts[0].Bucket)
	})

	s.Run("moving the date out never retracts issued alerts", func() {
		_, err := s.service.SetExpiryDate(s.ctx, doc.ID, s.now.AddDate(0, 0, 300))
		s.Require().NoError(err)

		alerts, err := s.alerts.ListByDocument(s.ctx, doc.ID)
		s.Require().NoError(err)
		s.Len(alerts, 1)
	})
}

// TestVerifyAtomicity pins the contract that a failed trail append rolls the
// verification back with it.
func (s *DocumentServiceSuite) TestVerifyAtomicity() {
	sup := s.addSupplier(domain.StatusApproved)

	doc, err := s.service.Upload(s.ctx, sup.ID, domain.DocTaxClearance, "docs/tax.pdf", s.expiryIn(20))
	s.Require().NoError(err)

	s.trail.FailAppendActivity = errors.New("disk full")
	_, err = s.service.Verify(s.ctx, doc.ID, uuid.New(), "Ops Admin", nil, "")
	s.Require().Error(err)
}

func (s *DocumentServiceSuite) TestMissingDocuments() {
	sup := s.addSupplier(domain.StatusIncomplete)

	missing, err := s.service.MissingDocuments(s.ctx, sup.ID)
	s.Require().NoError(err)
	s.Equal(domain.RequiredDocuments(sup.Category), missing)

	_, err = s.service.Upload(s.ctx, sup.ID, domain.DocCompanyProfile, "docs/profile.pdf", nil)
	s.Require().NoError(err)

	missing, err = s.service.MissingDocuments(s.ctx, sup.ID)
	s.Require().NoError(err)
	s.NotContains(missing, domain.DocCompanyProfile)
	s.Len(missing, len(domain.RequiredDocuments(sup.Category))-1)
}
