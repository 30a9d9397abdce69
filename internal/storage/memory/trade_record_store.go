package memory

import (
	"context"
	"sort"
	"sync"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu   sync.RWMutex
	data []*domain.TradeRecord
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{}
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

// Insert adds a new trade record.
func (s *TradeRecordStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.Symbol == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tradeCopy := *t
	s.data = append(s.data, &tradeCopy)
	return nil
}

// InsertBulk adds multiple trades atomically.
func (s *TradeRecordStore) InsertBulk(_ context.Context, trades []*domain.TradeRecord) error {
	for _, t := range trades {
		if t == nil || t.Symbol == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		tradeCopy := *t
		s.data = append(s.data, &tradeCopy)
	}
	return nil
}

// GetBySymbol retrieves all trades for a symbol, ordered by buy time ASC.
func (s *TradeRecordStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeRecord
	for _, t := range s.data {
		if t.Symbol == symbol {
			tradeCopy := *t
			result = append(result, &tradeCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BuyTime < result[j].BuyTime })
	return result, nil
}
