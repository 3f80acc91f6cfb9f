package review

import (
	"context"
	"math"
	"sort"
	"sync"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.ReviewID]*Review
	byBooking map[id.BookingID]id.ReviewID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[id.ReviewID]*Review),
		byBooking: make(map[id.BookingID]id.ReviewID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, r *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byBooking[r.BookingID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[r.ID] = cloneReview(r)
	s.byBooking[r.BookingID] = r.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, reviewID id.ReviewID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[reviewID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneReview(r), nil
}

func (s *InMemoryStore) FindByBooking(_ context.Context, bookingID id.BookingID) (*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviewID, ok := s.byBooking[bookingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneReview(s.byID[reviewID]), nil
}

func (s *InMemoryStore) ListByPlan(_ context.Context, filter ListFilter) ([]*Review, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Review, 0)
	for _, r := range s.byID {
		if r.PlanID != filter.PlanID {
			continue
		}
		if filter.ApprovedOnly && r.Moderation != ModerationApproved {
			continue
		}
		matched = append(matched, cloneReview(r))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []*Review{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *InMemoryStore) Update(_ context.Context, r *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[r.ID] = cloneReview(r)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, reviewID id.ReviewID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[reviewID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byBooking, r.BookingID)
	delete(s.byID, reviewID)
	return nil
}

func (s *InMemoryStore) AggregateByPlan(_ context.Context, planID id.PlanID) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, count := 0.0, 0
	for _, r := range s.byID {
		if r.PlanID != planID || r.Moderation != ModerationApproved {
			continue
		}
		sum += r.Rating.Overall
		count++
	}
	if count == 0 {
		return 0, 0, nil
	}
	return math.Round(sum/float64(count)*10) / 10, count, nil
}

func (s *InMemoryStore) CountByAuthor(_ context.Context, authorID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.byID {
		if r.AuthorID == authorID {
			n++
		}
	}
	return n, nil
}

func cloneReview(r *Review) *Review {
	clone := *r
	clone.HelpfulVotes = append([]id.UserID(nil), r.HelpfulVotes...)
	return &clone
}
