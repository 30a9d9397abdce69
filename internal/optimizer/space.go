// Package optimizer sweeps candidate configurations for one symbol, runs
// the simulation for each in parallel and selects a winner by a scoring
// policy.
package optimizer

import (
	"coin-strategy-lab/internal/domain"
)

// ParamSpace enumerates candidate values per tunable field. Empty fields
// inherit the base configuration's value, so a space can sweep a single
// knob or the full grid. Candidates are produced in a fixed order, which
// keeps the sweep's ranking deterministic.
type ParamSpace struct {
	Strategies          []string  `yaml:"strategies"`
	BuyDropPcts         []float64 `yaml:"buy_drop_pcts"`
	BuyRecoveryPcts     []float64 `yaml:"buy_recovery_pcts"`
	SellAtPcts          []float64 `yaml:"sell_at_pcts"`
	TrailTargetSellPcts []float64 `yaml:"trail_target_sell_pcts"`
	StopLossPcts        []float64 `yaml:"stop_loss_pcts"`
	HardLimitHoldSecs   []int64   `yaml:"hard_limit_hold_secs"`
	SoftLimitHoldSecs   []int64   `yaml:"soft_limit_hold_secs"`
	TrendWindows        []int     `yaml:"trend_windows"`
	TrendChangePcts     []float64 `yaml:"trend_change_pcts"`
	CooldownSecs        []int64   `yaml:"cooldown_secs"`
}

// Candidates expands the space into the cartesian product of all enumerated
// fields applied over base. The base must carry every field the space does
// not enumerate.
func (s ParamSpace) Candidates(base domain.StrategyConfig) []domain.StrategyConfig {
	candidates := []domain.StrategyConfig{base}

	candidates = expand(candidates, s.Strategies, func(c *domain.StrategyConfig, v string) { c.Strategy = v })
	candidates = expand(candidates, s.BuyDropPcts, func(c *domain.StrategyConfig, v float64) { c.BuyDropPct = v })
	candidates = expand(candidates, s.BuyRecoveryPcts, func(c *domain.StrategyConfig, v float64) { c.BuyRecoveryPct = v })
	candidates = expand(candidates, s.SellAtPcts, func(c *domain.StrategyConfig, v float64) { c.SellAtPct = v })
	candidates = expand(candidates, s.TrailTargetSellPcts, func(c *domain.StrategyConfig, v float64) { c.TrailTargetSellPct = v })
	candidates = expand(candidates, s.StopLossPcts, func(c *domain.StrategyConfig, v float64) { c.StopLossPct = v })
	candidates = expand(candidates, s.HardLimitHoldSecs, func(c *domain.StrategyConfig, v int64) { c.HardLimitHoldSec = v })
	candidates = expand(candidates, s.SoftLimitHoldSecs, func(c *domain.StrategyConfig, v int64) { c.SoftLimitHoldSec = v })
	candidates = expand(candidates, s.TrendWindows, func(c *domain.StrategyConfig, v int) { c.TrendWindow = v })
	candidates = expand(candidates, s.TrendChangePcts, func(c *domain.StrategyConfig, v float64) { c.TrendChangePct = v })
	candidates = expand(candidates, s.CooldownSecs, func(c *domain.StrategyConfig, v int64) { c.CooldownSec = v })

	return candidates
}

// expand multiplies the current candidate set by one enumerated dimension.
func expand[T any](in []domain.StrategyConfig, values []T, set func(*domain.StrategyConfig, T)) []domain.StrategyConfig {
	if len(values) == 0 {
		return in
	}
	out := make([]domain.StrategyConfig, 0, len(in)*len(values))
	for _, c := range in {
		for _, v := range values {
			next := c
			set(&next, v)
			out = append(out, next)
		}
	}
	return out
}
