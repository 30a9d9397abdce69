// Package campaign orchestrates parameter sweeps across the configured
// instrument set, either over a single window or over rolling
// train-then-forward windows.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/optimizer"
	"coin-strategy-lab/internal/simulation"
	"coin-strategy-lab/internal/storage"
)

// ErrNoSymbols means the campaign was started without instruments.
var ErrNoSymbols = errors.New("no symbols configured")

// PriceSource supplies the prefetched, ordered close-price series for one
// symbol. The klines client and the stored-series adapter both satisfy it;
// acquisition I/O happens here, never during replay.
type PriceSource interface {
	Series(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error)
}

// StoreSource adapts a PriceSeriesStore into a PriceSource.
type StoreSource struct {
	store storage.PriceSeriesStore
}

// NewStoreSource creates a source backed by stored price records.
func NewStoreSource(store storage.PriceSeriesStore) *StoreSource {
	return &StoreSource{store: store}
}

var _ PriceSource = (*StoreSource)(nil)

// Series returns stored records for the symbol within [start, end].
func (s *StoreSource) Series(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error) {
	return s.store.GetByTimeRange(ctx, symbol, start, end)
}

// Options configure a Campaign.
type Options struct {
	// Base carries the per-field defaults every candidate inherits; the
	// space enumerates the fields being swept.
	Base  domain.StrategyConfig
	Space optimizer.ParamSpace
	Sweep optimizer.Options

	Logger  *log.Logger
	Verbose bool
}

// SkippedSymbol records an instrument the campaign could not validly
// simulate. Skipped instruments are reported, never silently dropped.
type SkippedSymbol struct {
	Symbol string
	Err    error
}

// RunResult is the outcome of a single-window campaign.
type RunResult struct {
	// Selected maps symbol to its winning configuration.
	Selected map[string]*domain.OptimizationResult
	Skipped  []SkippedSymbol
}

// Campaign runs sweeps over many symbols.
type Campaign struct {
	source  PriceSource
	sweep   *optimizer.Sweep
	runner  *simulation.Runner
	base    domain.StrategyConfig
	space   optimizer.ParamSpace
	logger  *log.Logger
	verbose bool
}

// New creates a campaign over the given price source.
func New(source PriceSource, opts Options) *Campaign {
	return &Campaign{
		source:  source,
		sweep:   optimizer.New(opts.Sweep),
		runner:  simulation.NewRunner(),
		base:    opts.Base,
		space:   opts.Space,
		logger:  opts.Logger,
		verbose: opts.Verbose,
	}
}

// Run optimizes every symbol over one window. A symbol that cannot be
// simulated (data gap, every candidate disqualified) is recorded as
// skipped; the campaign itself always completes unless cancelled.
func (c *Campaign) Run(ctx context.Context, symbols []string, start, end int64) (*RunResult, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	result := &RunResult{
		Selected: make(map[string]*domain.OptimizationResult, len(symbols)),
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		records, err := c.fetch(ctx, symbol, start, end)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedSymbol{Symbol: symbol, Err: err})
			c.log("campaign: skipping %s: %v", symbol, err)
			continue
		}

		best, err := c.optimize(ctx, symbol, records)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			result.Skipped = append(result.Skipped, SkippedSymbol{Symbol: symbol, Err: err})
			c.log("campaign: skipping %s: %v", symbol, err)
			continue
		}

		result.Selected[symbol] = best
	}

	return result, nil
}

// fetch pulls the symbol's series from the source. Acquisition failures
// surface as data gaps: the instrument is skipped, never fabricated.
func (c *Campaign) fetch(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceRecord, error) {
	records, err := c.source.Series(ctx, symbol, start, end)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fetch %s: %v", simulation.ErrDataGap, symbol, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records for %s in [%d, %d]", simulation.ErrDataGap, symbol, start, end)
	}
	return records, nil
}

// optimize sweeps the candidate space for one symbol over one record slice.
func (c *Campaign) optimize(ctx context.Context, symbol string, records []*domain.PriceRecord) (*domain.OptimizationResult, error) {
	base := c.base
	base.Symbol = symbol

	candidates := c.space.Candidates(base)
	sweepResult, err := c.sweep.Optimize(ctx, symbol, records, candidates)
	if err != nil {
		return nil, err
	}
	return sweepResult.Best, nil
}

func (c *Campaign) log(format string, args ...interface{}) {
	if c.verbose && c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
