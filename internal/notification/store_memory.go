package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// InMemoryStore backs tests and local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[id.NotificationID]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[id.NotificationID]*Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[n.ID] = cloneNotification(n)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[notificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneNotification(n), nil
}

func (s *InMemoryStore) ListByRecipient(_ context.Context, filter ListFilter) ([]*Notification, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now().UTC()
	matched := make([]*Notification, 0)
	for _, n := range s.byID {
		if n.RecipientID != filter.RecipientID {
			continue
		}
		if n.Expired(now) {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		matched = append(matched, cloneNotification(n))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return []*Notification{}, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *InMemoryStore) Update(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[n.ID] = cloneNotification(n)
	return nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, recipientID id.UserID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64
	now := time.Now().UTC()
	for _, n := range s.byID {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			n.UpdatedAt = now
			updated++
		}
	}
	return updated, nil
}

func cloneNotification(n *Notification) *Notification {
	clone := *n
	if n.Data != nil {
		clone.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			clone.Data[k] = v
		}
	}
	return &clone
}
