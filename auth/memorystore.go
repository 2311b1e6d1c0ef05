package auth

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory. Suitable for tests and
// single-instance development only.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Credential)}
}

func (s *MemoryStore) Load(_ context.Context, tenant string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.records[tenant]
	if !ok {
		return nil, nil
	}
	copy := cred
	return &copy, nil
}

func (s *MemoryStore) Save(_ context.Context, tenant string, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[tenant] = *cred
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tenant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, tenant)
	return nil
}
