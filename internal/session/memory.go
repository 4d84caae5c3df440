package session

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemoryCapacity bounds the in-memory store; the least recently used
// session is evicted beyond it.
const DefaultMemoryCapacity = 10000

// MemoryStore keeps sessions in a bounded, expiring LRU. Sessions do not
// survive a restart and are not shared between processes.
type MemoryStore struct {
	cache *lru.LRU[string, *Session]
}

func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{cache: lru.NewLRU[string, *Session](capacity, nil, ttl)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, nil
	}
	return clone(s), nil
}

// Save stores a copy of s. Re-adding an existing key restarts its TTL.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.cache.Add(s.ID, clone(s))
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
