package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/internal/expiry"
	"vendorhub/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs. With a
// supplier status lookup and an alert lister attached it also serves as the
// expiry.DocumentReader.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]domain.Document

	// SupplierStatus resolves the owning supplier's status for the
	// candidate feed; nil defaults every supplier to APPROVED.
	SupplierStatus func(uuid.UUID) (domain.SupplierStatus, bool)
	// Alerts resolves a document's alerts for the expiring view; nil means
	// no alert annotations.
	Alerts func(ctx context.Context, documentID uuid.UUID) ([]expiry.Alert, error)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[uuid.UUID]domain.Document)}
}

func (s *MemoryStore) Create(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		if d.SupplierID == doc.SupplierID && d.Type == doc.Type {
			return sentinel.ErrAlreadyExists
		}
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, sentinel.ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) GetByType(_ context.Context, supplierID uuid.UUID, docType domain.DocumentType) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.docs {
		if d.SupplierID == supplierID && d.Type == docType {
			return d, nil
		}
	}
	return domain.Document{}, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) ListBySupplier(_ context.Context, supplierID uuid.UUID) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, d := range s.docs {
		if d.SupplierID == supplierID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ExpiringCandidates(_ context.Context) ([]expiry.CandidateDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lookup := s.SupplierStatus
	if lookup == nil {
		lookup = func(uuid.UUID) (domain.SupplierStatus, bool) { return domain.StatusApproved, true }
	}

	var out []expiry.CandidateDocument
	for _, d := range s.docs {
		if d.Status != domain.VerificationVerified || d.ExpiryDate == nil {
			continue
		}
		status, ok := lookup(d.SupplierID)
		if !ok || !status.Actionable() {
			continue
		}
		out = append(out, expiry.CandidateDocument{
			DocumentID:     d.ID,
			SupplierID:     d.SupplierID,
			DocumentType:   d.Type,
			ExpiryDate:     *d.ExpiryDate,
			SupplierStatus: status,
		})
	}
	return out, nil
}

func (s *MemoryStore) SupplierExpiring(ctx context.Context, supplierID uuid.UUID, today time.Time, withinDays int) ([]expiry.SupplierExpiringDocument, error) {
	s.mu.RLock()
	docs := make([]domain.Document, 0)
	for _, d := range s.docs {
		if d.SupplierID == supplierID && d.Status == domain.VerificationVerified && d.ExpiryDate != nil {
			docs = append(docs, d)
		}
	}
	s.mu.RUnlock()

	var out []expiry.SupplierExpiringDocument
	for _, d := range docs {
		days, _ := d.DaysUntilExpiry(today)
		if days > withinDays {
			continue
		}
		item := expiry.SupplierExpiringDocument{
			DocumentID:      d.ID,
			DocumentType:    d.Type,
			ExpiryDate:      *d.ExpiryDate,
			DaysUntilExpiry: days,
		}
		if s.Alerts != nil {
			alerts, err := s.Alerts(ctx, d.ID)
			if err != nil {
				return nil, err
			}
			item.AlertCount = len(alerts)
			for _, a := range alerts {
				if a.Acknowledged {
					item.Acknowledged = true
				}
				if a.CreatedAt.After(timeOrZero(item.LastAlertAt)) {
					created := a.CreatedAt
					item.LastAlertAt = &created
				}
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
