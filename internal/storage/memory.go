package storage

import (
	"context"
	"sync"

	"storefront/pkg/platform/sentinel"
)

// MemoryBackend is the process-wide area shared by in-process tabs. Each
// tab gets its own origin-scoped view via For.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend creates an empty shared area.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

// For returns the Storage view for origin.
func (b *MemoryBackend) For(origin string) *MemoryStorage {
	return &MemoryStorage{backend: b, origin: origin}
}

// MemoryStorage is an origin-scoped view over a MemoryBackend.
type MemoryStorage struct {
	backend *MemoryBackend
	origin  string
}

// NewMemory returns a private in-memory storage for a single origin.
func NewMemory(origin string) *MemoryStorage {
	return NewMemoryBackend().For(origin)
}

func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.backend.mu.RLock()
	defer s.backend.mu.RUnlock()
	v, ok := s.backend.data[NamespacedKey(s.origin, key)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (s *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.data[NamespacedKey(s.origin, key)] = clone(value)
	return nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	delete(s.backend.data, NamespacedKey(s.origin, key))
	return nil
}
