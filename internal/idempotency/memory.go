package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for tests and single-instance
// development runs. It honors TTL expiry but provides no cross-process
// exclusion.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

// NewMemoryStore constructs an empty in-memory lease store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]time.Time{}}
}

func (s *MemoryStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if exp, ok := s.items[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.items[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
