package store

import "sync"

// Store is durable key-value storage for engine state. Implementations
// absorb their own failures: Set and Remove never report errors, and Get
// returns ("", false) when the key is missing or the backend misbehaves.
// Callers are expected to substitute defaults, not to crash.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryStore is a map-backed Store for tests and ephemeral widgets.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}
