package memory

import (
	"context"
	"sort"
	"sync"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

// TunedConfigStore is an in-memory implementation of storage.TunedConfigStore.
type TunedConfigStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OptimizationResult // keyed by symbol
}

// NewTunedConfigStore creates a new in-memory tuned config store.
func NewTunedConfigStore() *TunedConfigStore {
	return &TunedConfigStore{
		data: make(map[string]*domain.OptimizationResult),
	}
}

var _ storage.TunedConfigStore = (*TunedConfigStore)(nil)

// Put stores or replaces the tuned config for the result's symbol.
func (s *TunedConfigStore) Put(_ context.Context, r *domain.OptimizationResult) error {
	if r == nil || r.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resultCopy := *r
	s.data[r.Symbol] = &resultCopy
	return nil
}

// Get retrieves the tuned config for a symbol. Returns ErrNotFound if none exists.
func (s *TunedConfigStore) Get(_ context.Context, symbol string) (*domain.OptimizationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[symbol]
	if !exists {
		return nil, storage.ErrNotFound
	}
	resultCopy := *r
	return &resultCopy, nil
}

// GetAll retrieves all tuned configs, ordered by symbol ASC.
func (s *TunedConfigStore) GetAll(_ context.Context) ([]*domain.OptimizationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.OptimizationResult, 0, len(s.data))
	for _, r := range s.data {
		resultCopy := *r
		result = append(result, &resultCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}
