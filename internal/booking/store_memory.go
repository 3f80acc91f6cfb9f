package booking

import (
	"context"
	"sort"
	"sync"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.BookingID]*Booking
	byCode map[string]id.BookingID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.BookingID]*Booking),
		byCode: make(map[string]id.BookingID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[b.ConfirmationCode]; exists {
		return sentinel.ErrConflict
	}
	s.byID[b.ID] = cloneBooking(b)
	s.byCode[b.ConfirmationCode] = b.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, bookingID id.BookingID) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[bookingID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (s *InMemoryStore) FindByConfirmationCode(_ context.Context, code string) (*Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookingID, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneBooking(s.byID[bookingID]), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, filter ListFilter) ([]*Booking, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Booking, 0)
	for _, b := range s.byID {
		if b.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		matched = append(matched, cloneBooking(b))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []*Booking{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *InMemoryStore) Update(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[b.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[b.ID] = cloneBooking(b)
	return nil
}

func (s *InMemoryStore) CountByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.byID {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func cloneBooking(b *Booking) *Booking {
	clone := *b
	clone.StatusHistory = append([]HistoryEntry(nil), b.StatusHistory...)
	return &clone
}
