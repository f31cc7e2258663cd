package state

import (
	"context"
	"sync"
)

// Storage is a key/value store scoped to one client instance.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Factory hands out the Storage of a client instance.
type Factory interface {
	ForClient(clientID string) Storage
	// Purge removes every value stored for the client.
	Purge(ctx context.Context, clientID string) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryStorage) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

// MemoryFactory keeps one MemoryStorage per client.
type MemoryFactory struct {
	mu      sync.Mutex
	clients map[string]*MemoryStorage
}

func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{clients: make(map[string]*MemoryStorage)}
}

func (f *MemoryFactory) ForClient(clientID string) Storage {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.clients[clientID]
	if !ok {
		s = NewMemoryStorage()
		f.clients[clientID] = s
	}
	return s
}

func (f *MemoryFactory) Purge(ctx context.Context, clientID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.clients, clientID)
	return nil
}
