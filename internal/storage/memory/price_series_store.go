package memory

import (
	"context"
	"sort"
	"sync"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.PriceRecord // keyed by symbol, kept sorted by timestamp
	seen map[priceKey]struct{}
}

type priceKey struct {
	symbol    string
	timestamp int64
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[string][]*domain.PriceRecord),
		seen: make(map[priceKey]struct{}),
	}
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on duplicate (symbol, timestamp).
func (s *PriceSeriesStore) InsertBulk(_ context.Context, records []*domain.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating anything.
	batch := make(map[priceKey]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := priceKey{r.Symbol, r.Timestamp}
		if _, dup := batch[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := s.seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	touched := make(map[string]struct{})
	for _, r := range records {
		recordCopy := *r
		s.data[r.Symbol] = append(s.data[r.Symbol], &recordCopy)
		s.seen[priceKey{r.Symbol, r.Timestamp}] = struct{}{}
		touched[r.Symbol] = struct{}{}
	}
	for symbol := range touched {
		rs := s.data[symbol]
		sort.Slice(rs, func(i, j int) bool { return rs[i].Timestamp < rs[j].Timestamp })
	}
	return nil
}

// GetBySymbol retrieves all records for a symbol, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.data[symbol]
	result := make([]*domain.PriceRecord, 0, len(records))
	for _, r := range records {
		recordCopy := *r
		result = append(result, &recordCopy)
	}
	return result, nil
}

// GetByTimeRange retrieves records for a symbol within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceRecord
	for _, r := range s.data[symbol] {
		if r.Timestamp >= start && r.Timestamp <= end {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}
	return result, nil
}

// Symbols lists the distinct symbols with stored records.
func (s *PriceSeriesStore) Symbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.data))
	for symbol := range s.data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}
