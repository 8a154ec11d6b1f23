package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vendorhub/internal/domain"
	"vendorhub/internal/expiry"
	"vendorhub/internal/platform/logger"
	"vendorhub/internal/platform/metrics"
	"vendorhub/internal/trail"
	txpkg "vendorhub/pkg/platform/tx"
	"vendorhub/pkg/requestcontext"
)

// flakyNotifier fails delivery for alert IDs in reject, records the rest.
type flakyNotifier struct {
	reject    map[uuid.UUID]bool
	rejectAll bool
	attempts  int
	delivered []expiry.PendingAlert
}

func (n *flakyNotifier) Notify(_ context.Context, alert expiry.PendingAlert) error {
	n.attempts++
	if n.rejectAll || n.reject[alert.AlertID] {
		return errors.New("smtp relay down")
	}
	n.delivered = append(n.delivered, alert)
	return nil
}

type RelaySuite struct {
	suite.Suite
	alerts   *expiry.MemoryAlertStore
	docs     *staticDocs
	service  *expiry.Service
	notifier *flakyNotifier
	relay    *Relay
	supplier uuid.UUID
	today    time.Time
	ctx      context.Context
}

type staticDocs struct{}

func (staticDocs) ExpiringCandidates(context.Context) ([]expiry.CandidateDocument, error) {
	return nil, nil
}

func (staticDocs) SupplierExpiring(context.Context, uuid.UUID, time.Time, int) ([]expiry.SupplierExpiringDocument, error) {
	return nil, nil
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.supplier = uuid.New()
	s.today = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.today)

	s.alerts = expiry.NewMemoryAlertStore(func(uuid.UUID) (expiry.SupplierInfo, bool) {
		return expiry.SupplierInfo{CompanyName: "Acme Mining", Email: "ops@acme.test", Status: domain.StatusApproved}, true
	})
	s.docs = &staticDocs{}

	log := logger.New("notify-test", "error")
	m := metrics.NewForTesting()
	mem := trail.NewMemoryStore()
	recorder := trail.NewRecorder(mem, mem, log, m)
	s.service = expiry.NewService(s.alerts, s.docs, recorder, txpkg.NewMemoryRunner(), log, m)

	s.notifier = &flakyNotifier{reject: make(map[uuid.UUID]bool)}
	s.relay = NewRelay(s.service, s.notifier, time.Minute, 100, log, m)
}

func (s *RelaySuite) addAlert(bucket expiry.Bucket, daysOut int) expiry.Alert {
	alert := expiry.Alert{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		SupplierID: s.supplier,
		Bucket:     bucket,
		ExpiryDate: s.today.AddDate(0, 0, daysOut),
		CreatedAt:  s.today,
	}
	s.Require().NoError(s.alerts.Insert(s.ctx, alert))
	return alert
}

func (s *RelaySuite) TestRelayOnceDeliversAndConfirms() {
	s.addAlert(expiry.Bucket7Days, 5)
	s.addAlert(expiry.Bucket30Days, 20)

	sent, err := s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, sent)
	s.Len(s.notifier.delivered, 2)

	s.Run("confirmed alerts leave the pending set", func() {
		pending, err := s.service.PendingAlerts(s.ctx, 100)
		s.Require().NoError(err)
		s.Empty(pending)
	})

	s.Run("second pass has nothing to do", func() {
		sent, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(sent)
	})
}

func (s *RelaySuite) TestFailedDeliveryStaysPending() {
	kept := s.addAlert(expiry.Bucket7Days, 5)
	s.notifier.reject[kept.ID] = true
	s.addAlert(expiry.Bucket30Days, 20)

	sent, err := s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, sent)

	pending, err := s.service.PendingAlerts(s.ctx, 100)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(kept.ID, pending[0].AlertID)

	s.Run("retried on the next pass once delivery recovers", func() {
		s.notifier.reject[kept.ID] = false
		sent, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, sent)
	})
}

// TestBreakerCutsBatchShort pins that a dead notifier stops the pass after
// the breaker's failure threshold instead of hammering every pending alert.
func (s *RelaySuite) TestBreakerCutsBatchShort() {
	for i := 0; i < 8; i++ {
		s.addAlert(expiry.Bucket30Days, 20)
	}
	s.notifier.rejectAll = true

	sent, err := s.relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Zero(sent)
	s.Equal(5, s.notifier.attempts)

	s.Run("open circuit probes once per pass", func() {
		sent, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(sent)
		s.Equal(6, s.notifier.attempts)
	})

	s.Run("recovered notifier drains the backlog", func() {
		s.notifier.rejectAll = false
		sent, err := s.relay.RelayOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(8, sent)
	})
}

// TestRelayDeliveryOrder pins that alerts go out most-urgent first, matching
// the pending feed's ordering contract.
func (s *RelaySuite) TestRelayDeliveryOrder() {
	urgent := s.addAlert(expiry.Bucket1Day, 1)
	later := s.addAlert(expiry.Bucket90Days, 80)

	ctrl := gomock.NewController(s.T())
	mock := NewMockNotifier(ctrl)
	gomock.InOrder(
		mock.EXPECT().Notify(gomock.Any(), matchAlert(urgent.ID)).Return(nil),
		mock.EXPECT().Notify(gomock.Any(), matchAlert(later.ID)).Return(nil),
	)

	relay := NewRelay(s.service, mock, time.Minute, 100, logger.New("notify-test", "error"), metrics.NewForTesting())
	sent, err := relay.RelayOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, sent)
}

func matchAlert(id uuid.UUID) gomock.Matcher {
	return gomock.Cond(func(a expiry.PendingAlert) bool { return a.AlertID == id })
}

// recordingPublisher captures what the Kafka notifier would put on the wire.
type recordingPublisher struct {
	topic string
	key   []byte
	value []byte
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.topic = topic
	p.key = key
	p.value = value
	return nil
}

func TestKafkaNotifierPayload(t *testing.T) {
	pub := &recordingPublisher{}
	notifier := NewKafkaNotifier(pub, "vendorhub.expiry-alerts")

	alert := expiry.PendingAlert{
		AlertID:         uuid.New(),
		DocumentID:      uuid.New(),
		SupplierID:      uuid.New(),
		CompanyName:     "Acme Mining",
		Email:           "ops@acme.test",
		DocumentType:    domain.DocTaxClearance,
		ExpiryDate:      time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Bucket:          expiry.Bucket7Days,
		DaysUntilExpiry: 5,
	}
	if err := notifier.Notify(context.Background(), alert); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if pub.topic != "vendorhub.expiry-alerts" {
		t.Fatalf("topic = %q", pub.topic)
	}
	if string(pub.key) != alert.SupplierID.String() {
		t.Fatalf("key = %q, want supplier id", pub.key)
	}

	var payload map[string]any
	if err := json.Unmarshal(pub.value, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload["alert_id"] != alert.AlertID.String() {
		t.Errorf("alert_id = %v", payload["alert_id"])
	}
	if payload["urgency"] != "7_days" {
		t.Errorf("urgency = %v", payload["urgency"])
	}
	if payload["email"] != "ops@acme.test" {
		t.Errorf("email = %v", payload["email"])
	}
}
