package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/storage"
)

// TunedConfigStore implements storage.TunedConfigStore using PostgreSQL.
// The winning configuration is stored as JSONB so the distribution endpoint
// can serve it without a second round of marshalling.
type TunedConfigStore struct {
	pool *Pool
}

// NewTunedConfigStore creates a new TunedConfigStore.
func NewTunedConfigStore(pool *Pool) *TunedConfigStore {
	return &TunedConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TunedConfigStore = (*TunedConfigStore)(nil)

// Put stores or replaces the tuned config for the result's symbol.
func (s *TunedConfigStore) Put(ctx context.Context, r *domain.OptimizationResult) error {
	if r == nil || r.Symbol == "" {
		return storage.ErrInvalidInput
	}

	configJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("marshal tuned config: %w", err)
	}

	query := `
		INSERT INTO tuned_configs (
			symbol, config, scoring, total_profit, clean_wins, stop_losses, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, now()
		)
		ON CONFLICT (symbol) DO UPDATE SET
			config = EXCLUDED.config,
			scoring = EXCLUDED.scoring,
			total_profit = EXCLUDED.total_profit,
			clean_wins = EXCLUDED.clean_wins,
			stop_losses = EXCLUDED.stop_losses,
			updated_at = now()
	`

	_, err = s.pool.Exec(ctx, query,
		r.Symbol, configJSON, r.Scoring, r.TotalProfit, r.CleanWins, r.StopLosses,
	)
	if err != nil {
		return fmt.Errorf("put tuned config: %w", err)
	}
	return nil
}

// Get retrieves the tuned config for a symbol. Returns ErrNotFound if none exists.
func (s *TunedConfigStore) Get(ctx context.Context, symbol string) (*domain.OptimizationResult, error) {
	query := `
		SELECT symbol, config, scoring, total_profit, clean_wins, stop_losses
		FROM tuned_configs
		WHERE symbol = $1
	`

	row := s.pool.QueryRow(ctx, query, symbol)
	r, err := scanTunedConfig(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tuned config: %w", err)
	}
	return r, nil
}

// GetAll retrieves all tuned configs, ordered by symbol ASC.
func (s *TunedConfigStore) GetAll(ctx context.Context) ([]*domain.OptimizationResult, error) {
	query := `
		SELECT symbol, config, scoring, total_profit, clean_wins, stop_losses
		FROM tuned_configs
		ORDER BY symbol ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all tuned configs: %w", err)
	}
	defer rows.Close()

	var results []*domain.OptimizationResult
	for rows.Next() {
		r, err := scanTunedConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tuned config row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tuned config rows: %w", err)
	}

	return results, nil
}

// scanTunedConfig scans a single row into an OptimizationResult.
func scanTunedConfig(row pgx.Row) (*domain.OptimizationResult, error) {
	var r domain.OptimizationResult
	var configJSON []byte

	err := row.Scan(
		&r.Symbol, &configJSON, &r.Scoring, &r.TotalProfit, &r.CleanWins, &r.StopLosses,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &r.Config); err != nil {
		return nil, fmt.Errorf("unmarshal tuned config: %w", err)
	}

	return &r, nil
}
