package history

import (
	"context"
	"sync"
)

// MemoryStore is a Port that lives only as long as the process.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	saves   int
}

func NewMemoryStore(seed ...Record) *MemoryStore {
	return &MemoryStore{records: append([]Record(nil), seed...)}
}

func (m *MemoryStore) Load(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...), nil
}

func (m *MemoryStore) Save(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]Record(nil), records...)
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

var _ Port = (*MemoryStore)(nil)
