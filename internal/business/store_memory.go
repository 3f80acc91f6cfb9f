package business

import (
	"context"
	"sort"
	"strings"
	"sync"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[id.BusinessID]*Business
	byReg map[string]id.BusinessID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[id.BusinessID]*Business),
		byReg: make(map[string]id.BusinessID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, b *Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := regKey(b.RegistrationNumber)
	if _, exists := s.byReg[key]; exists {
		return sentinel.ErrConflict
	}
	clone := *b
	s.byID[b.ID] = &clone
	s.byReg[key] = b.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, businessID id.BusinessID) (*Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *b
	return &clone, nil
}

func (s *InMemoryStore) FindByRegistrationNumber(_ context.Context, regNumber string) (*Business, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	businessID, ok := s.byReg[regKey(regNumber)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[businessID]
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Business, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Business, 0, len(s.byID))
	for _, b := range s.byID {
		if !b.Active {
			continue
		}
		if filter.City != "" && !strings.EqualFold(b.Address.City, filter.City) {
			continue
		}
		if filter.Status != "" && b.Verification.Status != filter.Status {
			continue
		}
		if !filter.OwnerID.IsNil() && b.OwnerID != filter.OwnerID {
			continue
		}
		clone := *b
		matched = append(matched, &clone)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []*Business{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *InMemoryStore) Update(_ context.Context, b *Business) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[b.ID]
	if !ok {
		return sentinel.ErrNotFound
	}

	newKey := regKey(b.RegistrationNumber)
	oldKey := regKey(current.RegistrationNumber)
	if newKey != oldKey {
		if _, taken := s.byReg[newKey]; taken {
			return sentinel.ErrConflict
		}
		delete(s.byReg, oldKey)
		s.byReg[newKey] = b.ID
	}

	clone := *b
	s.byID[b.ID] = &clone
	return nil
}

func regKey(regNumber string) string {
	return strings.ToUpper(strings.TrimSpace(regNumber))
}
