package audit

import (
	"context"
	"sync"
)

// DefaultPerUserLimit bounds how many events the in-memory store keeps per user.
const DefaultPerUserLimit = 200

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID string) ([]Event, error)
}

// InMemoryStore keeps the most recent events per user.
type InMemoryStore struct {
	mu     sync.RWMutex
	limit  int
	events map[string][]Event
}

func NewInMemoryStore(perUserLimit int) *InMemoryStore {
	if perUserLimit <= 0 {
		perUserLimit = DefaultPerUserLimit
	}
	return &InMemoryStore{limit: perUserLimit, events: make(map[string][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.events[event.UserID], event)
	if over := len(list) - s.limit; over > 0 {
		list = append([]Event(nil), list[over:]...)
	}
	s.events[event.UserID] = list
	return nil
}

// ListByUser returns the user's events oldest first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events[userID]...), nil
}
