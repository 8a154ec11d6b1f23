package trail

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory HistoryStore, ActivityStore and OutboxStore
// for unit tests and local runs. It ignores the ctx transaction; callers use
// tx.MemoryRunner for serialization.
type MemoryStore struct {
	mu              sync.RWMutex
	supplierHistory []SupplierStatusHistory
	documentHistory []DocumentStatusHistory
	activity        []ActivityLogEntry
	outbox          []OutboxEntry
	published       map[uuid.UUID]time.Time

	// FailAppendActivity forces the next activity append to fail, letting
	// tests exercise the all-or-nothing contract of RecordTransition.
	FailAppendActivity error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{published: make(map[uuid.UUID]time.Time)}
}

func (s *MemoryStore) AppendSupplier(_ context.Context, entry SupplierStatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supplierHistory = append(s.supplierHistory, entry)
	return nil
}

func (s *MemoryStore) AppendDocument(_ context.Context, entry DocumentStatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentHistory = append(s.documentHistory, entry)
	return nil
}

func (s *MemoryStore) ListSupplier(_ context.Context, supplierID uuid.UUID) ([]SupplierStatusHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []SupplierStatusHistory
	for _, e := range s.supplierHistory {
		if e.SupplierID == supplierID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) ListDocument(_ context.Context, documentID uuid.UUID) ([]DocumentStatusHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DocumentStatusHistory
	for _, e := range s.documentHistory {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, entry ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppendActivity != nil {
		return s.FailAppendActivity
	}
	s.activity = append(s.activity, entry)
	return nil
}

func (s *MemoryStore) ListBySupplier(_ context.Context, supplierID uuid.UUID, limit int) ([]ActivityLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ActivityLogEntry
	for _, e := range s.activity {
		if e.SupplierID == supplierID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Enqueue(_ context.Context, entry ActivityLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := marshalOutboxPayload(entry)
	if err != nil {
		return err
	}
	s.outbox = append(s.outbox, OutboxEntry{
		ID:         entry.ID,
		SupplierID: entry.SupplierID,
		Payload:    payload,
		CreatedAt:  entry.CreatedAt,
	})
	return nil
}

func (s *MemoryStore) Unpublished(_ context.Context, limit int) ([]OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []OutboxEntry
	for _, e := range s.outbox {
		if _, done := s.published[e.ID]; !done {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[id] = at
	return nil
}
