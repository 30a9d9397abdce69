package domain

import (
	"errors"
	"fmt"
)

// Strategy variant identifiers. The set is closed: adding a variant means
// adding a constant here and a case to the strategy factory.
const (
	StrategyBuyDropSellRecovery  = "buy_drop_sell_recovery"
	StrategyBuyMoonSellRecovery  = "buy_moon_sell_recovery"
	StrategyBuyDropInGrowthTrend = "buy_drop_in_growth_trend"
)

// Target decay curves for the soft-limit sell target.
const (
	DecayLinear    = "linear"
	DecayQuadratic = "quadratic"
)

// ErrInvalidConfig is returned when a StrategyConfig fails validation.
var ErrInvalidConfig = errors.New("invalid strategy config")

// StrategyConfig holds the per-symbol tunable parameters.
// Immutable once a simulation run starts. All percentage fields are
// fractions: 0.10 means 10%.
type StrategyConfig struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Strategy string `yaml:"strategy" json:"strategy"`

	BuyDropPct         float64 `yaml:"buy_drop_pct" json:"buy_drop_pct"`
	BuyRecoveryPct     float64 `yaml:"buy_recovery_pct" json:"buy_recovery_pct"`
	SellAtPct          float64 `yaml:"sell_at_pct" json:"sell_at_pct"`
	TrailTargetSellPct float64 `yaml:"trail_target_sell_pct" json:"trail_target_sell_pct"`
	TrailRecoveryPct   float64 `yaml:"trail_recovery_pct" json:"trail_recovery_pct"`
	StopLossPct        float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`

	HardLimitHoldSec int64 `yaml:"hard_limit_hold_sec" json:"hard_limit_hold_sec"`
	SoftLimitHoldSec int64 `yaml:"soft_limit_hold_sec" json:"soft_limit_hold_sec"`

	TrendWindow    int     `yaml:"trend_window" json:"trend_window"`
	TrendChangePct float64 `yaml:"trend_change_pct" json:"trend_change_pct"`

	CooldownSec        int64  `yaml:"cooldown_sec" json:"cooldown_sec"`
	CooldownAfterStale bool   `yaml:"cooldown_after_stale" json:"cooldown_after_stale"`
	TargetDecay        string `yaml:"target_decay" json:"target_decay"`

	// MaxConcurrentPositions caps open positions in the live process
	// consuming distributed configs. Backtests replay one symbol per
	// machine and do not read it; it rides along for distribution only.
	MaxConcurrentPositions int     `yaml:"max_concurrent_positions" json:"max_concurrent_positions"`
	TradingFeePct          float64 `yaml:"trading_fee_pct" json:"trading_fee_pct"`
}

// UsesTrendWindow reports whether the configured variant consumes the
// trend window buffer for its entry decision.
func (c *StrategyConfig) UsesTrendWindow() bool {
	return c.Strategy == StrategyBuyMoonSellRecovery ||
		c.Strategy == StrategyBuyDropInGrowthTrend
}

// BreakEvenPrice returns the sell price at which a position bought at
// buyPrice nets zero after fees on both sides.
func (c *StrategyConfig) BreakEvenPrice(buyPrice float64) float64 {
	return buyPrice * (1 + c.TradingFeePct) / (1 - c.TradingFeePct)
}

// Validate checks ranges and cross-field consistency. It runs before any
// simulation starts; a failure disqualifies the symbol up front.
func (c *StrategyConfig) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	switch c.Strategy {
	case StrategyBuyDropSellRecovery, StrategyBuyMoonSellRecovery, StrategyBuyDropInGrowthTrend:
	case "":
		return fmt.Errorf("%w: strategy is required", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}

	pctFields := []struct {
		name string
		v    float64
	}{
		{"buy_drop_pct", c.BuyDropPct},
		{"buy_recovery_pct", c.BuyRecoveryPct},
		{"sell_at_pct", c.SellAtPct},
		{"trail_target_sell_pct", c.TrailTargetSellPct},
		{"trail_recovery_pct", c.TrailRecoveryPct},
		{"stop_loss_pct", c.StopLossPct},
	}
	for _, f := range pctFields {
		if f.v < 0 || f.v >= 1 {
			return fmt.Errorf("%w: %s must be in [0, 1), got %v", ErrInvalidConfig, f.name, f.v)
		}
	}
	if c.BuyDropPct == 0 && c.Strategy != StrategyBuyMoonSellRecovery {
		return fmt.Errorf("%w: buy_drop_pct must be positive for %s", ErrInvalidConfig, c.Strategy)
	}
	if c.StopLossPct == 0 {
		return fmt.Errorf("%w: stop_loss_pct must be positive", ErrInvalidConfig)
	}
	if c.SellAtPct <= 0 {
		return fmt.Errorf("%w: sell_at_pct must be positive", ErrInvalidConfig)
	}

	if c.HardLimitHoldSec <= 0 {
		return fmt.Errorf("%w: hard_limit_hold_sec must be positive", ErrInvalidConfig)
	}
	if c.SoftLimitHoldSec < 0 || c.SoftLimitHoldSec > c.HardLimitHoldSec {
		return fmt.Errorf("%w: soft_limit_hold_sec must be in [0, hard_limit_hold_sec]", ErrInvalidConfig)
	}
	if c.CooldownSec < 0 {
		return fmt.Errorf("%w: cooldown_sec must be non-negative", ErrInvalidConfig)
	}
	if c.UsesTrendWindow() && c.TrendWindow < 2 {
		return fmt.Errorf("%w: trend_window must be at least 2 for %s", ErrInvalidConfig, c.Strategy)
	}
	if c.TradingFeePct < 0 || c.TradingFeePct >= 0.1 {
		return fmt.Errorf("%w: trading_fee_pct must be in [0, 0.1)", ErrInvalidConfig)
	}

	switch c.TargetDecay {
	case "", DecayLinear, DecayQuadratic:
	default:
		return fmt.Errorf("%w: unknown target_decay %q", ErrInvalidConfig, c.TargetDecay)
	}

	// A full trailing pullback from the base sell target must still clear
	// the fee-adjusted break-even price, otherwise a "clean win" exit could
	// realize a loss.
	if (1+c.SellAtPct)*(1-c.TrailTargetSellPct) < (1+c.TradingFeePct)/(1-c.TradingFeePct) {
		return fmt.Errorf("%w: sell_at_pct %v too small for trail_target_sell_pct %v at fee %v",
			ErrInvalidConfig, c.SellAtPct, c.TrailTargetSellPct, c.TradingFeePct)
	}

	return nil
}

// ID returns a compact identifier embedding the tunable parameters,
// used in logs and reports to tell candidate configurations apart.
func (c *StrategyConfig) ID() string {
	return fmt.Sprintf("%s_drop%.3f_rec%.3f_sell%.3f_trail%.3f_stop%.3f_hard%d_soft%d_tw%d_tc%.3f",
		c.Strategy, c.BuyDropPct, c.BuyRecoveryPct, c.SellAtPct,
		c.TrailTargetSellPct, c.StopLossPct,
		c.HardLimitHoldSec, c.SoftLimitHoldSec, c.TrendWindow, c.TrendChangePct)
}
