package storage

import (
	"context"

	"coin-strategy-lab/internal/domain"
)

// PriceSeriesStore provides access to prefetched price records.
type PriceSeriesStore interface {
	// InsertBulk adds multiple records. Fails entire batch on duplicate
	// (symbol, timestamp).
	InsertBulk(ctx context.Context, records []*domain.PriceRecord) error

	// GetBySymbol retrieves all records for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceRecord, error)

	// GetByTimeRange retrieves records for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error)

	// Symbols lists the distinct symbols with stored records.
	Symbols(ctx context.Context) ([]string, error)
}

// TradeRecordStore provides access to simulated trade records.
type TradeRecordStore interface {
	// Insert adds a new trade record.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple trades atomically.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetBySymbol retrieves all trades for a symbol, ordered by buy time ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.TradeRecord, error)
}

// TunedConfigStore holds the latest selected configuration per symbol, as
// exposed to the config-distribution endpoint.
type TunedConfigStore interface {
	// Put stores or replaces the tuned config for the result's symbol.
	Put(ctx context.Context, r *domain.OptimizationResult) error

	// Get retrieves the tuned config for a symbol. Returns ErrNotFound if
	// none exists.
	Get(ctx context.Context, symbol string) (*domain.OptimizationResult, error)

	// GetAll retrieves all tuned configs, ordered by symbol ASC.
	GetAll(ctx context.Context) ([]*domain.OptimizationResult, error)
}
