package plan

import (
	"context"
	"sort"
	"strings"
	"sync"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// InMemoryStore keeps plans in a map for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.PlanID]*Plan
	bySlug map[string]id.PlanID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.PlanID]*Plan),
		bySlug: make(map[string]id.PlanID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySlug[p.Slug]; exists {
		return sentinel.ErrConflict
	}
	cp := *p
	s.byID[p.ID] = &cp
	s.bySlug[p.Slug] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, planID id.PlanID) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[planID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) FindBySlug(_ context.Context, slug string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	planID, ok := s.bySlug[slug]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[planID]
	return &cp, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Plan, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Plan
	for _, p := range s.byID {
		if !p.Active {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.City != "" && !strings.EqualFold(p.Address.City, filter.City) {
			continue
		}
		if filter.MinPrice > 0 && p.Price.Amount < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && p.Price.Amount > filter.MaxPrice {
			continue
		}
		if !filter.OwnerID.IsNil() && p.OwnerID != filter.OwnerID {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *p
	s.byID[p.ID] = &cp
	return nil
}

func (s *InMemoryStore) IncrementViews(_ context.Context, planID id.PlanID) error {
	return s.adjust(planID, func(p *Plan) { p.Stats.Views++ })
}

func (s *InMemoryStore) AdjustFavorites(_ context.Context, planID id.PlanID, delta int64) error {
	return s.adjust(planID, func(p *Plan) {
		p.Stats.Favorites += delta
		if p.Stats.Favorites < 0 {
			p.Stats.Favorites = 0
		}
	})
}

func (s *InMemoryStore) IncrementBookings(_ context.Context, planID id.PlanID) error {
	return s.adjust(planID, func(p *Plan) { p.Stats.Bookings++ })
}

func (s *InMemoryStore) SetRating(_ context.Context, planID id.PlanID, rating Rating) error {
	return s.adjust(planID, func(p *Plan) { p.Rating = rating })
}

func (s *InMemoryStore) adjust(planID id.PlanID, fn func(*Plan)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[planID]
	if !ok {
		return sentinel.ErrNotFound
	}
	fn(p)
	return nil
}
