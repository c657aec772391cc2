package store

import (
	"context"
	"sync"

	"schoolpay/internal/school"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/sentinel"
)

// InMemoryStore keeps schools in maps for tests and database-less runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.SchoolID]*school.School
	byOwner map[id.UserID]id.SchoolID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.SchoolID]*school.School),
		byOwner: make(map[id.UserID]id.SchoolID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, sc *school.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOwner[sc.OwnerID]; exists {
		return sentinel.ErrConflict
	}
	sc.Version = 1
	s.byID[sc.ID] = clone(sc)
	s.byOwner[sc.OwnerID] = sc.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, schoolID id.SchoolID) (*school.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.byID[schoolID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sc), nil
}

func (s *InMemoryStore) FindByOwner(_ context.Context, ownerID id.UserID) (*school.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schoolID, ok := s.byOwner[ownerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.byID[schoolID]), nil
}

func (s *InMemoryStore) Update(_ context.Context, sc *school.School) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[sc.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.Version != sc.Version {
		return sentinel.ErrVersionMismatch
	}
	sc.Version++
	s.byID[sc.ID] = clone(sc)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, schoolID id.SchoolID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.byID[schoolID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byOwner, sc.OwnerID)
	delete(s.byID, schoolID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]school.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schools := make([]school.School, 0, len(s.byID))
	for _, sc := range s.byID {
		schools = append(schools, *clone(sc))
	}
	return schools, nil
}

func clone(sc *school.School) *school.School {
	out := *sc
	out.FeeItems = append([]school.FeeItem(nil), sc.FeeItems...)
	out.CustomFields = append([]string(nil), sc.CustomFields...)
	if sc.Sessions != nil {
		out.Sessions = make([]school.Session, len(sc.Sessions))
		for i, sess := range sc.Sessions {
			sess.Terms = append([]school.TermPeriod(nil), sess.Terms...)
			out.Sessions[i] = sess
		}
	}
	if sc.FeeDeadline != nil {
		t := *sc.FeeDeadline
		out.FeeDeadline = &t
	}
	return &out
}
