package store

import (
	"context"
	"sync"

	"schoolpay/internal/payment"
	"schoolpay/internal/user"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
)

// InMemoryStore keeps users in maps for tests and database-less runs.
// Version checks mirror the postgres store's conditional updates.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.UserID]*user.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.UserID]*user.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return sentinel.ErrConflict
	}
	u.Version = 1
	s.byID[u.ID] = clone(u)
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(u), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[userID]), nil
}

// Update writes the whole user conditional on its version, bumping it on
// success so the caller's copy stays current.
func (s *InMemoryStore) Update(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Version != u.Version {
		return sentinel.ErrVersionMismatch
	}
	if existing.Email != u.Email {
		if _, taken := s.byEmail[u.Email]; taken {
			return sentinel.ErrConflict
		}
		delete(s.byEmail, existing.Email)
		s.byEmail[u.Email] = u.ID
	}
	u.Version++
	s.byID[u.ID] = clone(u)
	return nil
}

// UpdateEntitlement writes only the entitlement, conditional on version.
func (s *InMemoryStore) UpdateEntitlement(_ context.Context, userID id.UserID, version int64, ent payment.Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Version != version {
		return sentinel.ErrVersionMismatch
	}
	entCopy := ent
	existing.Entitlement = &entCopy
	existing.Version++
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.byID, userID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]user.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, *clone(u))
	}
	return users, nil
}

func clone(u *user.User) *user.User {
	out := *u
	if u.CustomValues != nil {
		out.CustomValues = make(map[string]string, len(u.CustomValues))
		for k, v := range u.CustomValues {
			out.CustomValues[k] = v
		}
	}
	if u.Entitlement != nil {
		ent := *u.Entitlement
		ent.FeeLines = append([]payment.FeeLine(nil), u.Entitlement.FeeLines...)
		out.Entitlement = &ent
	}
	if u.PasswordHash != nil {
		out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	}
	return &out
}
