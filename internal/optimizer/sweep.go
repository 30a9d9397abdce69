package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"coin-strategy-lab/internal/domain"
	"coin-strategy-lab/internal/simulation"
)

// Sweep errors.
var (
	// ErrNoQualifiedCandidates means every candidate configuration for the
	// symbol was disqualified; the symbol is omitted from the optimization
	// output rather than failing the campaign.
	ErrNoQualifiedCandidates = errors.New("no qualified candidate configurations")
)

// Disqualification records a candidate that could not be ranked.
type Disqualification struct {
	Config domain.StrategyConfig
	Err    error
}

// SweepResult is the full outcome of one sweep: the winner plus the
// candidates that were disqualified along the way.
type SweepResult struct {
	Best         *domain.OptimizationResult
	Evaluated    int
	Disqualified []Disqualification
}

// Options configure a Sweep.
type Options struct {
	Policy      Policy
	Parallelism int  // worker count; defaults to GOMAXPROCS
	EarlyExit   bool // allow the simulation short-circuit when the policy permits
	Logger      *log.Logger
	Verbose     bool
}

// Sweep runs the simulation for every candidate configuration of one
// symbol over one price window and selects the best by the scoring policy.
// Runs are share-nothing; result selection does not depend on completion
// order.
type Sweep struct {
	runner      *simulation.Runner
	policy      Policy
	parallelism int
	earlyExit   bool
	logger      *log.Logger
	verbose     bool
}

// New creates a sweep.
func New(opts Options) *Sweep {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Sweep{
		runner:      simulation.NewRunner(),
		policy:      opts.Policy,
		parallelism: parallelism,
		earlyExit:   opts.EarlyExit && opts.Policy.DisqualifiesStops(),
		logger:      opts.Logger,
		verbose:     opts.Verbose,
	}
}

// Optimize evaluates all candidates and returns the sweep result. On
// cancellation, in-flight runs drain to completion before the context
// error is returned.
func (s *Sweep) Optimize(ctx context.Context, symbol string, records []*domain.PriceRecord, candidates []domain.StrategyConfig) (*SweepResult, error) {
	if len(candidates) == 0 {
		return nil, ErrNoQualifiedCandidates
	}

	s.log("sweep %s: %d candidates, %d workers, policy=%s",
		symbol, len(candidates), s.parallelism, s.policy)

	type job struct {
		index int
		cfg   domain.StrategyConfig
	}

	jobs := make(chan job)
	outcomes := make([]runOutcome, len(candidates))
	var wg sync.WaitGroup

	for w := 0; w < s.parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.index] = s.runOne(ctx, j.cfg, records)
			}
		}()
	}

	var cancelled bool
dispatch:
	for i, cfg := range candidates {
		select {
		case <-ctx.Done():
			cancelled = true
			break dispatch
		case jobs <- job{index: i, cfg: cfg}:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled {
		return nil, ctx.Err()
	}

	// Rank in candidate order so the selection is independent of which
	// worker finished first.
	result := &SweepResult{}
	var best scored
	var haveBest bool

	for i, out := range outcomes {
		if out.err != nil {
			result.Disqualified = append(result.Disqualified, Disqualification{
				Config: candidates[i],
				Err:    out.err,
			})
			continue
		}
		result.Evaluated++
		sc := s.policy.evaluate(out.result)
		if !haveBest || s.policy.better(sc, best) {
			best = sc
			haveBest = true
		}
	}

	if !haveBest {
		return nil, fmt.Errorf("%w: symbol %s, %d candidates disqualified",
			ErrNoQualifiedCandidates, symbol, len(result.Disqualified))
	}

	result.Best = domain.NewOptimizationResult(symbol, best.result.Config, best.result, string(s.policy))
	s.log("sweep %s: selected %s (profit %.6f, clean wins %d, stop losses %d)",
		symbol, result.Best.Config.ID(), result.Best.TotalProfit,
		result.Best.CleanWins, result.Best.StopLosses)

	return result, nil
}

type runOutcome struct {
	result *domain.BacktestResult
	err    error
}

// runOne executes one candidate simulation. Any fault inside the run,
// panics included, is converted into a disqualified outcome and never
// reaches sibling runs or the aggregation.
func (s *Sweep) runOne(ctx context.Context, cfg domain.StrategyConfig, records []*domain.PriceRecord) (out runOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = runOutcome{err: fmt.Errorf("run isolation: panic: %v", r)}
		}
	}()

	result, err := s.runner.Run(ctx, cfg, records, simulation.Options{EarlyExit: s.earlyExit})
	if err != nil {
		return runOutcome{err: err}
	}
	return runOutcome{result: result}
}

func (s *Sweep) log(format string, args ...interface{}) {
	if s.verbose && s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
