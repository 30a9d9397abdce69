package strategy

import (
	"errors"
	"fmt"

	"coin-strategy-lab/internal/domain"
)

// Factory errors.
var (
	ErrUnknownStrategy     = errors.New("unknown strategy variant")
	ErrMissingTrendWindow  = errors.New("trend-aware strategy requires trend_window")
	ErrMissingTrendChange  = errors.New("trend-aware strategy requires trend_change_pct")
	ErrMissingBuyDrop      = errors.New("drop strategy requires buy_drop_pct")
	ErrMissingBuyRecovery  = errors.New("buy_drop_sell_recovery requires buy_recovery_pct")
	ErrMissingTrailRecover = errors.New("buy_drop_in_growth_trend requires trail_recovery_pct")
)

// FromConfig creates the entry predicate for the configured variant.
// Dispatch is a closed switch over the strategy identifiers; new variants
// are added here.
func FromConfig(cfg domain.StrategyConfig) (Entry, error) {
	switch cfg.Strategy {
	case domain.StrategyBuyDropSellRecovery:
		if cfg.BuyDropPct <= 0 {
			return nil, ErrMissingBuyDrop
		}
		if cfg.BuyRecoveryPct <= 0 {
			return nil, ErrMissingBuyRecovery
		}
		return NewBuyDropSellRecovery(cfg.BuyDropPct, cfg.BuyRecoveryPct), nil

	case domain.StrategyBuyMoonSellRecovery:
		if cfg.TrendWindow < 2 {
			return nil, ErrMissingTrendWindow
		}
		if cfg.TrendChangePct <= 0 {
			return nil, ErrMissingTrendChange
		}
		return NewBuyMoonSellRecovery(cfg.TrendChangePct), nil

	case domain.StrategyBuyDropInGrowthTrend:
		if cfg.BuyDropPct <= 0 {
			return nil, ErrMissingBuyDrop
		}
		if cfg.TrailRecoveryPct <= 0 {
			return nil, ErrMissingTrailRecover
		}
		if cfg.TrendWindow < 2 {
			return nil, ErrMissingTrendWindow
		}
		if cfg.TrendChangePct <= 0 {
			return nil, ErrMissingTrendChange
		}
		return NewBuyDropInGrowthTrend(cfg.BuyDropPct, cfg.TrailRecoveryPct, cfg.TrendChangePct), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
	}
}
