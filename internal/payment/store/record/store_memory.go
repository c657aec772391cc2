package record

import (
	"context"
	"sync"

	"schoolpay/internal/payment"
	"schoolpay/pkg/platform/sentinel"
)

// InMemoryStore keeps the payment log in a map. Used by tests and by
// deployments without a database; the mutex gives it the same uniqueness
// semantics as the postgres unique index.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]payment.PaymentRecord
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]payment.PaymentRecord)}
}

func (s *InMemoryStore) Insert(_ context.Context, rec payment.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Reference]; exists {
		return sentinel.ErrConflict
	}
	s.records[rec.Reference] = rec
	return nil
}

func (s *InMemoryStore) FindByReference(_ context.Context, reference string) (*payment.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[reference]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

func (s *InMemoryStore) MarkerExists(_ context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[eventID]
	return ok && rec.Kind == payment.RecordKindMarker, nil
}
