package expiry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/pkg/platform/sentinel"
)

// SupplierInfo is the supplier projection the memory store needs to emulate
// the Pending join.
type SupplierInfo struct {
	CompanyName string
	Email       string
	Status      domain.SupplierStatus
}

type alertKey struct {
	documentID uuid.UUID
	bucket     Bucket
}

// MemoryAlertStore is an in-memory AlertStore for unit tests and local runs.
type MemoryAlertStore struct {
	mu       sync.RWMutex
	alerts   map[alertKey]*Alert
	docTypes map[uuid.UUID]domain.DocumentType
	lookup   func(uuid.UUID) (SupplierInfo, bool)
}

// NewMemoryAlertStore builds a store; lookup resolves supplier projections
// for Pending and may be nil when delivery paths are not under test.
func NewMemoryAlertStore(lookup func(uuid.UUID) (SupplierInfo, bool)) *MemoryAlertStore {
	if lookup == nil {
		lookup = func(uuid.UUID) (SupplierInfo, bool) { return SupplierInfo{Status: domain.StatusApproved}, true }
	}
	return &MemoryAlertStore{
		alerts:   make(map[alertKey]*Alert),
		docTypes: make(map[uuid.UUID]domain.DocumentType),
		lookup:   lookup,
	}
}

// SetDocumentType registers the document type surfaced in PendingAlert rows.
func (s *MemoryAlertStore) SetDocumentType(documentID uuid.UUID, t domain.DocumentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docTypes[documentID] = t
}

func (s *MemoryAlertStore) Insert(_ context.Context, alert Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alertKey{alert.DocumentID, alert.Bucket}
	if _, exists := s.alerts[key]; exists {
		return sentinel.ErrAlreadyExists
	}
	copied := alert
	s.alerts[key] = &copied
	return nil
}

func (s *MemoryAlertStore) Pending(_ context.Context, today time.Time, limit int) ([]PendingAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []PendingAlert
	for _, a := range s.alerts {
		if a.EmailSent {
			continue
		}
		info, ok := s.lookup(a.SupplierID)
		if !ok || !info.Status.Actionable() {
			continue
		}
		out = append(out, PendingAlert{
			AlertID:         a.ID,
			DocumentID:      a.DocumentID,
			SupplierID:      a.SupplierID,
			CompanyName:     info.CompanyName,
			Email:           info.Email,
			DocumentType:    s.docTypes[a.DocumentID],
			ExpiryDate:      a.ExpiryDate,
			Bucket:          a.Bucket,
			DaysUntilExpiry: daysUntil(a.ExpiryDate, today),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].Bucket.Urgency() < out[j].Bucket.Urgency()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryAlertStore) MarkSent(_ context.Context, alertID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.find(alertID)
	if a == nil {
		return false, nil
	}
	a.EmailSent = true
	sentAt := at
	a.EmailSentAt = &sentAt
	a.ReminderCount++
	a.LastReminderAt = &sentAt
	return true, nil
}

func (s *MemoryAlertStore) Acknowledge(_ context.Context, alertID, supplierID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.find(alertID)
	if a == nil || a.SupplierID != supplierID {
		return false, nil
	}
	a.Acknowledged = true
	ackAt := at
	a.AcknowledgedAt = &ackAt
	ackBy := supplierID
	a.AcknowledgedBy = &ackBy
	return true, nil
}

func (s *MemoryAlertStore) ListByDocument(_ context.Context, documentID uuid.UUID) ([]Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Alert
	for _, a := range s.alerts {
		if a.DocumentID == documentID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryAlertStore) Stats(_ context.Context, today time.Time) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for _, a := range s.alerts {
		stats.TotalAlerts++
		if a.EmailSent {
			stats.SentAlerts++
		} else {
			stats.PendingAlerts++
		}
		if a.Acknowledged {
			stats.AcknowledgedAlerts++
		}
		days := daysUntil(a.ExpiryDate, today)
		switch {
		case days < 0:
			stats.ExpiredDocuments++
		case days <= 7:
			stats.CriticalAlerts++
		case days <= 30:
			stats.WarningAlerts++
		}
	}
	return stats, nil
}

func (s *MemoryAlertStore) find(alertID uuid.UUID) *Alert {
	for _, a := range s.alerts {
		if a.ID == alertID {
			return a
		}
	}
	return nil
}
