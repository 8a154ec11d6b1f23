package supplier

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"vendorhub/internal/domain"
	"vendorhub/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs. Email
// uniqueness is case-insensitive, matching the citext-style behavior of the
// SQL store.
type MemoryStore struct {
	mu        sync.RWMutex
	suppliers map[uuid.UUID]domain.Supplier
	byEmail   map[string]uuid.UUID
	changes   map[uuid.UUID]domain.ProfileChange
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		suppliers: make(map[uuid.UUID]domain.Supplier),
		byEmail:   make(map[string]uuid.UUID),
		changes:   make(map[uuid.UUID]domain.ProfileChange),
	}
}

func (s *MemoryStore) Create(_ context.Context, sup domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(sup.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrAlreadyExists
	}
	s.suppliers[sup.ID] = sup
	s.byEmail[key] = sup.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return domain.Supplier{}, sentinel.ErrNotFound
	}
	return sup, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.Supplier{}, sentinel.ErrNotFound
	}
	return s.suppliers[id], nil
}

func (s *MemoryStore) Update(_ context.Context, sup domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.suppliers[sup.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	newKey := strings.ToLower(sup.Email)
	if oldKey := strings.ToLower(existing.Email); oldKey != newKey {
		if _, taken := s.byEmail[newKey]; taken {
			return sentinel.ErrAlreadyExists
		}
		delete(s.byEmail, oldKey)
		s.byEmail[newKey] = sup.ID
	}
	s.suppliers[sup.ID] = sup
	return nil
}

func (s *MemoryStore) List(_ context.Context, status domain.SupplierStatus, limit int) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Supplier
	for _, sup := range s.suppliers {
		if status != "" && sup.Status != status {
			continue
		}
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RejectedBefore(_ context.Context, cutoff time.Time) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Supplier
	for _, sup := range s.suppliers {
		if sup.Status != domain.StatusRejected || sup.ReviewedAt == nil {
			continue
		}
		if sup.ReviewedAt.Before(cutoff) {
			out = append(out, sup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewedAt.Before(*out[j].ReviewedAt) })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sup, ok := s.suppliers[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, strings.ToLower(sup.Email))
	delete(s.suppliers, id)
	for changeID, change := range s.changes {
		if change.SupplierID == id {
			delete(s.changes, changeID)
		}
	}
	return nil
}

func (s *MemoryStore) CreateProfileChange(_ context.Context, c domain.ProfileChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.changes {
		if existing.SupplierID == c.SupplierID && existing.Status == domain.ProfileChangePending {
			return sentinel.ErrAlreadyExists
		}
	}
	s.changes[c.ID] = cloneProfileChange(c)
	return nil
}

func (s *MemoryStore) GetProfileChange(_ context.Context, id uuid.UUID) (domain.ProfileChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.changes[id]
	if !ok {
		return domain.ProfileChange{}, sentinel.ErrNotFound
	}
	return cloneProfileChange(c), nil
}

func (s *MemoryStore) UpdateProfileChange(_ context.Context, c domain.ProfileChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.changes[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.changes[c.ID] = cloneProfileChange(c)
	return nil
}

func (s *MemoryStore) ListProfileChanges(_ context.Context, status domain.ProfileChangeStatus, limit int) ([]domain.ProfileChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ProfileChange
	for _, c := range s.changes {
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, cloneProfileChange(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListSupplierProfileChanges(_ context.Context, supplierID uuid.UUID, limit int) ([]domain.ProfileChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ProfileChange
	for _, c := range s.changes {
		if c.SupplierID != supplierID {
			continue
		}
		out = append(out, cloneProfileChange(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cloneProfileChange copies the request maps so callers cannot mutate stored
// state through the returned value.
func cloneProfileChange(c domain.ProfileChange) domain.ProfileChange {
	c.Requested = maps.Clone(c.Requested)
	c.Previous = maps.Clone(c.Previous)
	return c
}
