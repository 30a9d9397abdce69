package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coin-strategy-lab/internal/domain"
)

func baseConfig() domain.StrategyConfig {
	return domain.StrategyConfig{
		Symbol:             "BTCUSDT",
		Strategy:           domain.StrategyBuyDropSellRecovery,
		BuyDropPct:         0.10,
		BuyRecoveryPct:     0.01,
		SellAtPct:          0.05,
		TrailTargetSellPct: 0.01,
		StopLossPct:        0.10,
		HardLimitHoldSec:   7200,
		SoftLimitHoldSec:   3600,
		CooldownSec:        600,
	}
}

func makeRecords(t0, interval int64, prices []float64) []*domain.PriceRecord {
	records := make([]*domain.PriceRecord, len(prices))
	for i, p := range prices {
		records[i] = &domain.PriceRecord{Timestamp: t0 + int64(i)*interval, Symbol: "BTCUSDT", Price: p}
	}
	return records
}

func TestParamSpace_CartesianProduct(t *testing.T) {
	space := ParamSpace{
		BuyDropPcts:  []float64{0.05, 0.10, 0.15},
		SellAtPcts:   []float64{0.03, 0.06},
		StopLossPcts: []float64{0.10},
	}

	candidates := space.Candidates(baseConfig())
	require.Len(t, candidates, 6)

	// Unenumerated fields inherit the base.
	for _, c := range candidates {
		assert.Equal(t, 0.01, c.BuyRecoveryPct)
		assert.Equal(t, 0.10, c.StopLossPct)
	}
	// Fixed expansion order: first candidate carries the first value of
	// every dimension.
	assert.Equal(t, 0.05, candidates[0].BuyDropPct)
	assert.Equal(t, 0.03, candidates[0].SellAtPct)
	assert.Equal(t, 0.06, candidates[1].SellAtPct)
}

func TestParamSpace_EmptySpaceYieldsBase(t *testing.T) {
	candidates := ParamSpace{}.Candidates(baseConfig())
	require.Len(t, candidates, 1)
	assert.Equal(t, baseConfig(), candidates[0])
}

func result(cleanWins, stopLosses int, totalProfit float64, buyDrop float64) *domain.BacktestResult {
	cfg := baseConfig()
	cfg.BuyDropPct = buyDrop
	r := &domain.BacktestResult{
		Symbol:      "BTCUSDT",
		Config:      cfg,
		CleanWins:   cleanWins,
		StopLosses:  stopLosses,
		TotalProfit: totalProfit,
	}
	for i := 0; i < cleanWins; i++ {
		r.Trades = append(r.Trades, &domain.TradeRecord{Outcome: domain.OutcomeCleanWin, Profit: totalProfit / float64(cleanWins)})
	}
	return r
}

func TestPolicy_CleanWinCountPrefersZeroStopLosses(t *testing.T) {
	// Equal total profit and equal clean-win count; the zero-stop-loss
	// configuration must win under number_of_clean_wins.
	withStops := result(3, 2, 10.0, 0.05)
	clean := result(3, 0, 10.0, 0.10)

	p := PolicyCleanWinCount
	assert.True(t, p.better(p.evaluate(clean), p.evaluate(withStops)))
	assert.False(t, p.better(p.evaluate(withStops), p.evaluate(clean)))
}

func TestPolicy_TieBreakPrefersSmallerBuyDrop(t *testing.T) {
	a := result(2, 0, 5.0, 0.05)
	b := result(2, 0, 5.0, 0.15)

	for _, p := range []Policy{PolicyMaxProfitCleanWins, PolicyCleanWinCount, PolicyGreed} {
		assert.True(t, p.better(p.evaluate(a), p.evaluate(b)), "policy %s", p)
	}
}

func TestPolicy_MaxProfitCleanWinsTaintsStopLosses(t *testing.T) {
	// A tainted candidate ranks below a clean one no matter the profit.
	rich := result(5, 1, 100.0, 0.10)
	modest := result(1, 0, 0.5, 0.10)

	p := PolicyMaxProfitCleanWins
	assert.True(t, p.better(p.evaluate(modest), p.evaluate(rich)))
}

func TestPolicy_MaxProfitCleanWinsTaintsStales(t *testing.T) {
	// A stale forced sell disqualifies like a stop loss does.
	staled := result(5, 0, 100.0, 0.10)
	staled.Stales = 1
	staled.Trades = append(staled.Trades, &domain.TradeRecord{Outcome: domain.OutcomeStale, Profit: 1.0})
	modest := result(1, 0, 0.5, 0.10)

	p := PolicyMaxProfitCleanWins
	assert.True(t, p.better(p.evaluate(modest), p.evaluate(staled)))
	assert.False(t, p.better(p.evaluate(staled), p.evaluate(modest)))
}

func TestPolicy_GreedCountsAllOutcomes(t *testing.T) {
	rich := result(5, 3, 100.0, 0.10)
	modest := result(1, 0, 0.5, 0.10)

	p := PolicyGreed
	assert.True(t, p.better(p.evaluate(rich), p.evaluate(modest)))
}

func TestParsePolicy(t *testing.T) {
	for _, name := range []string{"max_profit_on_clean_wins", "number_of_clean_wins", "greed"} {
		_, err := ParsePolicy(name)
		assert.NoError(t, err)
	}
	_, err := ParsePolicy("yolo")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestSweep_SelectsDeterministically(t *testing.T) {
	// 90->89->91->97->96 is a clean cycle for a 10% drop config; a 20%
	// drop config never sees a deep enough dip and never buys.
	records := makeRecords(1000, 60, []float64{100, 90, 89, 91, 97, 96})

	space := ParamSpace{
		BuyDropPcts:  []float64{0.10, 0.20},
		StopLossPcts: []float64{0.02, 0.10},
	}
	candidates := space.Candidates(baseConfig())

	var first *domain.OptimizationResult
	for i := 0; i < 4; i++ {
		sweep := New(Options{Policy: PolicyCleanWinCount, Parallelism: 3})
		res, err := sweep.Optimize(context.Background(), "BTCUSDT", records, candidates)
		require.NoError(t, err)
		require.NotNil(t, res.Best)
		if first == nil {
			first = res.Best
			continue
		}
		assert.Equal(t, first.Config, res.Best.Config, "parallel sweep selection changed between runs")
	}

	assert.Equal(t, 0.10, first.Config.BuyDropPct)
	assert.Equal(t, 1, first.CleanWins)
	assert.Equal(t, 0, first.StopLosses)
}

func TestSweep_EarlyExitDoesNotChangeSelection(t *testing.T) {
	// The short-hard-limit candidate stales out of its first position and
	// then rides the later dip for a large clean win; the long-hard-limit
	// candidate holds through and banks a small one. The stale disqualifies
	// the short candidate under max_profit_on_clean_wins, so the winner is
	// the same whether or not staled runs were cut short.
	records := makeRecords(0, 100, []float64{100, 85, 86, 88, 89, 88, 87, 70, 71, 95, 90})

	short := baseConfig()
	short.StopLossPct = 0.5
	short.SoftLimitHoldSec = 300
	short.HardLimitHoldSec = 360
	short.CooldownSec = 0

	long := short
	long.HardLimitHoldSec = 100000

	candidates := []domain.StrategyConfig{short, long}

	var selected []domain.StrategyConfig
	for _, earlyExit := range []bool{true, false} {
		sweep := New(Options{Policy: PolicyMaxProfitCleanWins, EarlyExit: earlyExit})
		res, err := sweep.Optimize(context.Background(), "BTCUSDT", records, candidates)
		require.NoError(t, err)
		selected = append(selected, res.Best.Config)
	}

	assert.Equal(t, selected[0], selected[1], "selection changed with the early-exit toggle")
	assert.Equal(t, int64(100000), selected[0].HardLimitHoldSec)
}

func TestSweep_DisqualifiedCandidateDoesNotAbort(t *testing.T) {
	records := makeRecords(1000, 60, []float64{100, 90, 89, 91, 97, 96})

	sick := baseConfig()
	sick.Strategy = domain.StrategyBuyMoonSellRecovery
	sick.TrendWindow = 1000 // far more history than the window provides
	sick.TrendChangePct = 0.02

	candidates := []domain.StrategyConfig{sick, baseConfig()}

	sweep := New(Options{Policy: PolicyCleanWinCount})
	res, err := sweep.Optimize(context.Background(), "BTCUSDT", records, candidates)
	require.NoError(t, err)

	require.Len(t, res.Disqualified, 1)
	assert.Equal(t, 1, res.Evaluated)
	assert.Equal(t, baseConfig(), res.Best.Config)
}

func TestSweep_AllDisqualified(t *testing.T) {
	records := makeRecords(1000, 60, []float64{100, 101})

	sick := baseConfig()
	sick.StopLossPct = 0 // fails validation inside the run

	sweep := New(Options{Policy: PolicyGreed})
	_, err := sweep.Optimize(context.Background(), "BTCUSDT", records, []domain.StrategyConfig{sick})
	assert.ErrorIs(t, err, ErrNoQualifiedCandidates)
}

func TestSweep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := makeRecords(1000, 60, []float64{100, 90, 89, 91})
	sweep := New(Options{Policy: PolicyGreed})
	_, err := sweep.Optimize(ctx, "BTCUSDT", records, ParamSpace{}.Candidates(baseConfig()))
	assert.ErrorIs(t, err, context.Canceled)
}
