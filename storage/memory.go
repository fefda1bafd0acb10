package storage

import "sync"

// MemoryStore provides an in-memory implementation of Store.
//
// Suitable for tests and for embedding the coordinator where nothing needs
// to survive a process restart. For the redirect round-trip of a real
// integration use FileStore or any shared backend implementing Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
	}
}

// Get returns the stored value, or (nil, nil) when the key is absent.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	// Copy so callers cannot mutate the stored slice.
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a copy of the value under the key.
func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.entries[key] = stored
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
