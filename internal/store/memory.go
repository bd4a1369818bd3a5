package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"MarketTimeMachine/internal/model"
)

// MemoryStore keeps datasets in process; used when SQLite is not configured.
type MemoryStore struct {
	mu       sync.RWMutex
	datasets map[string]*model.Dataset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{datasets: make(map[string]*model.Dataset)}
}

func (m *MemoryStore) Save(_ context.Context, ds *model.Dataset) error {
	if ds.Scenario == "" {
		return fmt.Errorf("save dataset: empty scenario id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[ds.Scenario] = ds
	return nil
}

func (m *MemoryStore) Get(_ context.Context, scenario string) (*model.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.datasets[scenario]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", scenario, ErrNotFound)
	}
	return ds, nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.datasets))
	for id := range m.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) Close() error { return nil }
