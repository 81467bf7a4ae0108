package securestore

import (
	"context"
	"maps"
	"sync"

	"github.com/felixgeelhaar/subscriptions/internal/credentials/domain"
)

// MemoryBackend keeps stores in process memory.
type MemoryBackend struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{stores: make(map[string]*MemoryStore)}
}

// Open returns the store for name, creating it on first use.
func (b *MemoryBackend) Open(_ context.Context, name string) (domain.SecureStore, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.stores[name]
	if !ok {
		s = NewMemoryStore()
		b.stores[name] = s
	}
	return s, nil
}

// MemoryStore is a map guarded by a mutex.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Commit(_ context.Context, changes map[string]*string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply(s.values, changes)
	return nil
}

// Snapshot returns a copy of the raw values.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

func apply(values map[string]string, changes map[string]*string) {
	for key, value := range changes {
		if value == nil {
			delete(values, key)
		} else {
			values[key] = *value
		}
	}
}
