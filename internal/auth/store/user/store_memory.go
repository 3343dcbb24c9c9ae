// Package user persists accounts. Stores report facts with sentinel errors;
// the auth service decides what they mean to a client.
package user

import (
	"context"
	"sync"

	"devconnect/internal/auth/models"
	id "devconnect/pkg/domain"
	"devconnect/pkg/email"
	"devconnect/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in a map keyed by id, with a secondary index
// on the normalized email key.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Create stores a new user. It fails with sentinel.ErrAlreadyUsed when the
// email key or id is taken.
func (s *InMemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := u.EmailKey()
	if _, taken := s.byEmail[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	if _, taken := s.users[u.ID]; taken {
		return sentinel.ErrAlreadyUsed
	}
	stored := *u
	s.users[u.ID] = &stored
	s.byEmail[key] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *u
	return &found, nil
}

// FindByEmail looks a user up case-insensitively.
func (s *InMemoryUserStore) FindByEmail(_ context.Context, address string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[email.Key(address)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.users[userID]
	return &found, nil
}
