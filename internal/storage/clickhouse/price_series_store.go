package clickhouse

import (
	"context"
	"fmt"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on duplicate (symbol, ts).
// MergeTree doesn't enforce uniqueness at insert time, so duplicates are
// detected with explicit checks before the batch is sent.
func (s *PriceSeriesStore) InsertBulk(ctx context.Context, records []*domain.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		symbol    string
		timestamp int64
	}
	seen := make(map[key]struct{}, len(records))
	for _, r := range records {
		if r == nil || r.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := key{r.Symbol, r.Timestamp}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, r := range records {
		exists, err := s.exists(ctx, r.Symbol, r.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_series (symbol, ts, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		if err := batch.Append(r.Symbol, r.Timestamp, r.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all records for a symbol, ordered by timestamp ASC.
func (s *PriceSeriesStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceRecord, error) {
	query := `
		SELECT symbol, ts, price
		FROM price_series
		WHERE symbol = ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query by symbol: %w", err)
	}
	defer rows.Close()

	return scanPriceRecords(rows)
}

// GetByTimeRange retrieves records for a symbol within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error) {
	query := `
		SELECT symbol, ts, price
		FROM price_series
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceRecords(rows)
}

// Symbols lists the distinct symbols with stored records.
func (s *PriceSeriesStore) Symbols(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT symbol
		FROM price_series
		ORDER BY symbol ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbol rows: %w", err)
	}

	return symbols, nil
}

// exists checks if a record with the given key exists.
func (s *PriceSeriesStore) exists(ctx context.Context, symbol string, timestamp int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_series
		WHERE symbol = ? AND ts = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, symbol, timestamp).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used by the scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPriceRecords scans multiple rows.
func scanPriceRecords(rows chRows) ([]*domain.PriceRecord, error) {
	var records []*domain.PriceRecord

	for rows.Next() {
		var r domain.PriceRecord
		if err := rows.Scan(&r.Symbol, &r.Timestamp, &r.Price); err != nil {
			return nil, fmt.Errorf("scan price series row: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price series rows: %w", err)
	}

	return records, nil
}
