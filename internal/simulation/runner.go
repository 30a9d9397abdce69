// Package simulation replays ordered price sequences through the trade
// state machine and produces backtest results.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/machine"
)

// Runner errors.
var (
	// ErrDataGap marks a malformed feed: empty, non-monotonic timestamps,
	// or NaN/non-positive prices. The instrument is skipped for the window;
	// data is never fabricated.
	ErrDataGap = errors.New("data gap in price feed")

	// ErrInsufficientHistory marks a window shorter than the configured
	// trend lookback. It disqualifies the candidate configuration only.
	ErrInsufficientHistory = errors.New("insufficient history for trend window")
)

// Options control a single replay.
type Options struct {
	// EarlyExit stops the replay on the first STOP_LOSS or
	// STALE_FORCED_SELL, since a sweep disqualifies such configurations
	// regardless of later behavior. It is an optimization only and must be
	// off for final reporting and forward simulation.
	EarlyExit bool
}

// Runner executes simulation runs. It holds no mutable state; a CoinState
// and its price slice are exclusively owned by each run.
type Runner struct{}

// NewRunner creates a simulation runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run replays records through a fresh state machine for cfg and returns the
// trade ledger with aggregates. Given identical inputs the output is
// identical across runs; the replay performs no I/O and shares no state.
func (r *Runner) Run(ctx context.Context, cfg domain.StrategyConfig, records []*domain.PriceRecord, opts Options) (*domain.BacktestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validateFeed(records); err != nil {
		return nil, err
	}
	if cfg.UsesTrendWindow() && len(records) < cfg.TrendWindow {
		return nil, fmt.Errorf("%w: have %d records, trend window %d",
			ErrInsufficientHistory, len(records), cfg.TrendWindow)
	}

	m, err := machine.New(cfg)
	if err != nil {
		return nil, err
	}

	result := &domain.BacktestResult{
		Symbol: cfg.Symbol,
		Config: cfg,
	}

	var buyTime int64
	var buyPrice float64

	for _, rec := range records {
		result.EventCount++

		ev := m.Update(rec.Timestamp, rec.Price)
		if ev == nil {
			continue
		}

		switch ev.Action {
		case machine.ActionBuy:
			buyTime = ev.Time
			buyPrice = ev.Price

		case machine.ActionSell:
			trade := domain.NewTradeRecord(cfg.Symbol, buyTime, buyPrice, ev.Time, ev.Price, cfg.TradingFeePct, ev.Outcome)
			result.Trades = append(result.Trades, trade)
		}

		if opts.EarlyExit && ev.Action == machine.ActionSell &&
			(ev.Outcome == domain.OutcomeStopLoss || ev.Outcome == domain.OutcomeStale) {
			break
		}
	}

	// A position still open when the feed ends is closed on paper at the
	// last observed price so the ledger accounts for it. A position opened
	// at the final timestamp has no later observation to close against; it
	// counts as still holding without a paper trade, keeping every trade's
	// sell time strictly after its buy time.
	if m.State().Holding() {
		last := records[len(records)-1]
		if last.Timestamp > buyTime {
			trade := domain.NewTradeRecord(cfg.Symbol, buyTime, buyPrice, last.Timestamp, last.Price, cfg.TradingFeePct, domain.OutcomeStillHolding)
			result.Trades = append(result.Trades, trade)
		} else {
			result.StillHolding++
		}
	}

	aggregate(result)
	return result, nil
}

// validateFeed rejects malformed sequences at the package boundary; the
// state machine itself assumes a clean, ordered feed.
func validateFeed(records []*domain.PriceRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("%w: empty feed", ErrDataGap)
	}

	prev := int64(math.MinInt64)
	for i, rec := range records {
		if rec.Timestamp < prev {
			return fmt.Errorf("%w: non-monotonic timestamp at index %d", ErrDataGap, i)
		}
		if math.IsNaN(rec.Price) || rec.Price <= 0 {
			return fmt.Errorf("%w: invalid price %v at index %d", ErrDataGap, rec.Price, i)
		}
		prev = rec.Timestamp
	}
	return nil
}

// aggregate fills the derived fields from the trade ledger.
func aggregate(r *domain.BacktestResult) {
	var cumulative, peak, maxDrawdown float64

	for _, t := range r.Trades {
		switch t.Outcome {
		case domain.OutcomeCleanWin:
			r.CleanWins++
		case domain.OutcomeStopLoss:
			r.StopLosses++
		case domain.OutcomeStale:
			r.Stales++
		case domain.OutcomeStillHolding:
			r.StillHolding++
		}
		r.TotalProfit += t.Profit

		cumulative += t.Profit
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	r.MaxDrawdown = maxDrawdown
}
