package session

import (
	"context"
	"time"

	"ceycent/internal/cache"
)

// MemoryStore keeps sessions in a bounded LRU cache.
type MemoryStore struct {
	items *cache.LRUCache[Session]
}

func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: cache.NewLRUCache[Session](maxSessions, ttl)}
}

// Cleaner exposes the backing cache for the cache manager's sweep.
func (m *MemoryStore) Cleaner() cache.Cleaner {
	return m.items
}

func (m *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s, ok := m.items.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session, ttl time.Duration) error {
	m.items.SetWithTTL(s.ID, s, ttl)
	return nil
}

func (m *MemoryStore) Refresh(_ context.Context, s Session, ttl time.Duration) error {
	if !m.items.Replace(s.ID, s, ttl) {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.items.Delete(id)
	return nil
}
