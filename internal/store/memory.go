package store

import "sync"

// MemoryStore keeps the page in RAM only. Nothing survives the process.
type MemoryStore struct {
	mu   sync.Mutex
	data page
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(page, PageSize)}
}

func (ms *MemoryStore) Get(key string) (int32, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.data.get(key)
}

func (ms *MemoryStore) Set(key string, v int32) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.data.set(key, v)
}

func (ms *MemoryStore) Close() error {
	return nil
}
