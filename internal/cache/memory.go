package cache

import (
	"context"
	"sync"
)

// MemoryProvider backs tests and single-node runs without a cache dir.
type MemoryProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{stores: make(map[string]*MemoryStore)}
}

func (p *MemoryProvider) Category(name string) Store {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[name]
	if !ok {
		s = NewMemoryStore()
		p.stores[name] = s
	}
	return s
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[key]
	return b, ok
}

func (s *MemoryStore) Put(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), payload...)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}
