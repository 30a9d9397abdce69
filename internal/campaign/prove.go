package campaign

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/simulation"
)

// ErrInvalidWindow marks contradictory prove-mode window parameters.
var ErrInvalidWindow = errors.New("invalid prove window parameters")

// ProveOptions define the rolling windows: train on [t, t+TrainSec), then
// replay the selected configuration forward over the next LiveSec seconds,
// then advance t by StepSec.
type ProveOptions struct {
	Start int64
	End   int64

	TrainSec int64
	LiveSec  int64
	StepSec  int64
}

// Validate rejects contradictory window parameters before any data is fetched.
func (o ProveOptions) Validate() error {
	if o.TrainSec <= 0 || o.LiveSec <= 0 || o.StepSec <= 0 {
		return fmt.Errorf("%w: train/live/step must be positive", ErrInvalidWindow)
	}
	if o.End <= o.Start {
		return fmt.Errorf("%w: end must be after start", ErrInvalidWindow)
	}
	if o.Start+o.TrainSec+o.LiveSec > o.End {
		return fmt.Errorf("%w: span shorter than one train+live window", ErrInvalidWindow)
	}
	return nil
}

// WindowOutcome is the result of one rolling window: the configurations
// selected on training data and how each performed when replayed forward
// over data not seen at selection time.
type WindowOutcome struct {
	TrainStart int64
	LiveStart  int64 // also the exclusive end of the training window
	LiveEnd    int64 // exclusive

	Selected map[string]*domain.OptimizationResult
	Forward  map[string]*domain.BacktestResult
	Skipped  []SkippedSymbol
}

// ProveResult aggregates forward performance across all rolling windows.
type ProveResult struct {
	Windows []WindowOutcome

	ForwardProfit     float64
	ForwardCleanWins  int
	ForwardStopLosses int
	ForwardStales     int
}

// Prove runs rolling-window validation. The training window's optimizer
// only ever sees records strictly before the live window; the forward
// replay uses the full (non early-exit) simulation so its ledger is
// complete.
func (c *Campaign) Prove(ctx context.Context, symbols []string, opts ProveOptions) (*ProveResult, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Prefetch each symbol's full series once; windows are slices of it.
	series := make(map[string][]*domain.PriceRecord, len(symbols))
	var prefetchSkipped []SkippedSymbol
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := c.fetch(ctx, symbol, opts.Start, opts.End)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			prefetchSkipped = append(prefetchSkipped, SkippedSymbol{Symbol: symbol, Err: err})
			continue
		}
		series[symbol] = records
	}

	result := &ProveResult{}

	for trainStart := opts.Start; trainStart+opts.TrainSec+opts.LiveSec <= opts.End; trainStart += opts.StepSec {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		liveStart := trainStart + opts.TrainSec
		liveEnd := liveStart + opts.LiveSec

		window := WindowOutcome{
			TrainStart: trainStart,
			LiveStart:  liveStart,
			LiveEnd:    liveEnd,
			Selected:   make(map[string]*domain.OptimizationResult),
			Forward:    make(map[string]*domain.BacktestResult),
			Skipped:    append([]SkippedSymbol(nil), prefetchSkipped...),
		}

		for _, symbol := range symbols {
			records, ok := series[symbol]
			if !ok {
				continue
			}

			train := sliceRange(records, trainStart, liveStart)
			if len(train) == 0 {
				window.Skipped = append(window.Skipped, SkippedSymbol{
					Symbol: symbol,
					Err:    fmt.Errorf("%w: no training records in [%d, %d)", simulation.ErrDataGap, trainStart, liveStart),
				})
				continue
			}

			best, err := c.optimize(ctx, symbol, train)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				window.Skipped = append(window.Skipped, SkippedSymbol{Symbol: symbol, Err: err})
				continue
			}
			window.Selected[symbol] = best

			live := sliceRange(records, liveStart, liveEnd)
			if len(live) == 0 {
				window.Skipped = append(window.Skipped, SkippedSymbol{
					Symbol: symbol,
					Err:    fmt.Errorf("%w: no live records in [%d, %d)", simulation.ErrDataGap, liveStart, liveEnd),
				})
				continue
			}

			forward, err := c.runner.Run(ctx, best.Config, live, simulation.Options{})
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil, err
				}
				window.Skipped = append(window.Skipped, SkippedSymbol{Symbol: symbol, Err: err})
				continue
			}
			window.Forward[symbol] = forward

			result.ForwardProfit += forward.TotalProfit
			result.ForwardCleanWins += forward.CleanWins
			result.ForwardStopLosses += forward.StopLosses
			result.ForwardStales += forward.Stales
		}

		result.Windows = append(result.Windows, window)
	}

	return result, nil
}

// sliceRange returns the sub-slice of records with timestamps in
// [start, end). Records are already ordered by timestamp.
func sliceRange(records []*domain.PriceRecord, start, end int64) []*domain.PriceRecord {
	lo := sort.Search(len(records), func(i int) bool { return records[i].Timestamp >= start })
	hi := sort.Search(len(records), func(i int) bool { return records[i].Timestamp >= end })
	return records[lo:hi]
}
