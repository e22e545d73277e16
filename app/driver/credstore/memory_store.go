package credstore

import (
	"context"
	"sync"

	"account-service/app/domain"
)

// MemoryStore keeps credentials for the lifetime of the process only.
type MemoryStore struct {
	mu     sync.RWMutex
	record *domain.CredentialRecord
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(_ context.Context, record domain.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &record
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (domain.CredentialRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return domain.CredentialRecord{}, false, nil
	}
	return *s.record, true, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
