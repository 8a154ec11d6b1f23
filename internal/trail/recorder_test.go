package trail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vendorhub/internal/domain"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/pkg/requestcontext"
)

type RecorderSuite struct {
	suite.Suite
	store      *MemoryStore
	recorder   *Recorder
	supplierID uuid.UUID
	ctx        context.Context
	now        time.Time
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderSuite))
}

func (s *RecorderSuite) SetupTest() {
	s.store = NewMemoryStore()
	log := logger.New("trail-test", "error")
	s.recorder = NewRecorder(s.store, s.store, log, metrics.NewForTesting(), WithOutbox(s.store))
	s.supplierID = uuid.New()
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *RecorderSuite) TestSupplierTransition() {
	actor := domain.Actor{Type: domain.ActorAdmin, Name: "Ops Admin"}
	err := s.recorder.RecordSupplierTransition(s.ctx, s.supplierID,
		domain.StatusSubmitted, domain.StatusUnderReview, actor, "assigned for review")
	s.Require().NoError(err)

	history, err := s.recorder.SupplierHistory(s.ctx, s.supplierID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Require().NotNil(history[0].OldStatus)
	s.Equal(domain.StatusSubmitted, *history[0].OldStatus)
	s.Equal(domain.StatusUnderReview, history[0].NewStatus)
	s.Equal(domain.ActorAdmin, history[0].Actor.Type)
	s.Equal("assigned for review", history[0].Notes)
	s.True(history[0].CreatedAt.Equal(s.now))

	timeline, err := s.recorder.Timeline(s.ctx, s.supplierID, 10)
	s.Require().NoError(err)
	s.Require().Len(timeline, 1)
	s.Equal(ActivityStatusChange, timeline[0].Type)
	s.Require().NotNil(timeline[0].Metadata.StatusChange)
	s.Equal("supplier", timeline[0].Metadata.StatusChange.Entity)
	s.Equal("SUBMITTED", timeline[0].Metadata.StatusChange.OldStatus)
	s.Equal("UNDER_REVIEW", timeline[0].Metadata.StatusChange.NewStatus)
}

func (s *RecorderSuite) TestUnchangedStatusIsNoOp() {
	actor := domain.SystemActor()
	err := s.recorder.RecordSupplierTransition(s.ctx, s.supplierID,
		domain.StatusApproved, domain.StatusApproved, actor, "")
	s.Require().NoError(err)

	history, err := s.recorder.SupplierHistory(s.ctx, s.supplierID)
	s.Require().NoError(err)
	s.Empty(history)

	timeline, err := s.recorder.Timeline(s.ctx, s.supplierID, 10)
	s.Require().NoError(err)
	s.Empty(timeline)
}

func (s *RecorderSuite) TestDocumentTransition() {
	documentID := uuid.New()
	adminID := uuid.New()
	actor := domain.Actor{Type: domain.ActorAdmin, ID: &adminID, Name: "Reviewer"}

	err := s.recorder.RecordDocumentTransition(s.ctx, documentID, s.supplierID,
		domain.DocTaxClearance, domain.VerificationPending, domain.VerificationVerified, actor, "")
	s.Require().NoError(err)

	history, err := s.recorder.DocumentHistory(s.ctx, documentID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.VerificationVerified, history[0].NewStatus)
	s.Equal(s.supplierID, history[0].SupplierID)

	err = s.recorder.RecordDocumentTransition(s.ctx, documentID, s.supplierID,
		domain.DocTaxClearance, domain.VerificationVerified, domain.VerificationVerified, actor, "")
	s.Require().NoError(err)
	history, err = s.recorder.DocumentHistory(s.ctx, documentID)
	s.Require().NoError(err)
	s.Len(history, 1, "unchanged verification must not append")
}

// TestActivityFailureIsFatal pins the atomicity contract: when the activity
// append fails, the recorder surfaces the error so the caller rolls back the
// surrounding transaction, history row included.
func (s *RecorderSuite) TestActivityFailureIsFatal() {
	s.store.FailAppendActivity = errors.New("disk full")

	err := s.recorder.RecordSupplierTransition(s.ctx, s.supplierID,
		domain.StatusIncomplete, domain.StatusSubmitted, domain.SystemActor(), "")
	s.Require().Error(err)
	s.Contains(err.Error(), "append activity log")
}

func (s *RecorderSuite) TestLogActivityDefaults() {
	err := s.recorder.LogActivity(s.ctx, ActivityLogEntry{
		SupplierID:  s.supplierID,
		Type:        ActivityDocumentUpload,
		Title:       "Document uploaded",
		Description: "TAX_CLEARANCE uploaded",
		Actor:       domain.Actor{Type: domain.ActorVendor, Name: "Acme Mining"},
	})
	s.Require().NoError(err)

	timeline, err := s.recorder.Timeline(s.ctx, s.supplierID, 10)
	s.Require().NoError(err)
	s.Require().Len(timeline, 1)
	s.NotEqual(uuid.Nil, timeline[0].ID)
	s.True(timeline[0].CreatedAt.Equal(s.now))
	s.Equal(MetadataVersion, timeline[0].Metadata.Version)
	s.Equal(ActivityDocumentUpload, timeline[0].Metadata.Kind)
}

func (s *RecorderSuite) TestOutboxStagesEveryActivity() {
	err := s.recorder.RecordSupplierTransition(s.ctx, s.supplierID,
		domain.StatusIncomplete, domain.StatusSubmitted, domain.SystemActor(), "")
	s.Require().NoError(err)

	staged, err := s.store.Unpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(staged, 1)
	s.Equal(s.supplierID, staged[0].SupplierID)
}

func (s *RecorderSuite) TestTimelineOrderAndLimit() {
	for i := 0; i < 5; i++ {
		ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(i)*time.Minute))
		s.Require().NoError(s.recorder.LogActivity(ctx, ActivityLogEntry{
			SupplierID: s.supplierID,
			Type:       ActivityDocumentUpload,
			Title:      "Document uploaded",
			Actor:      domain.SystemActor(),
		}))
	}

	timeline, err := s.recorder.Timeline(s.ctx, s.supplierID, 3)
	s.Require().NoError(err)
	s.Require().Len(timeline, 3)
	s.True(timeline[0].CreatedAt.After(timeline[1].CreatedAt))
	s.True(timeline[1].CreatedAt.After(timeline[2].CreatedAt))
}
