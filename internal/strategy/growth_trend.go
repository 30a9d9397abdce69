package strategy

import (
	"coin-strategy-lab/internal/domain"
)

// BuyDropInGrowthTrend is the drop-then-recovery entry gated by a secondary
// trend filter: the recovery buy only fires while the price is still up at
// least TrendChangePct over the trend window, so isolated dips inside a
// falling market are ignored. The recovery bounce threshold is
// TrailRecoveryPct rather than BuyRecoveryPct.
type BuyDropInGrowthTrend struct {
	BuyDropPct       float64
	TrailRecoveryPct float64
	TrendChangePct   float64
}

// NewBuyDropInGrowthTrend creates the trend-gated drop entry predicate.
func NewBuyDropInGrowthTrend(buyDropPct, trailRecoveryPct, trendChangePct float64) *BuyDropInGrowthTrend {
	return &BuyDropInGrowthTrend{
		BuyDropPct:       buyDropPct,
		TrailRecoveryPct: trailRecoveryPct,
		TrendChangePct:   trendChangePct,
	}
}

// Name returns the strategy variant identifier.
func (e *BuyDropInGrowthTrend) Name() string { return domain.StrategyBuyDropInGrowthTrend }

// Evaluate implements Entry.
func (e *BuyDropInGrowthTrend) Evaluate(state *domain.CoinState, window *PriceWindow, _ int64, price float64) bool {
	switch state.Status {
	case domain.StatusIdle:
		if price > state.Max {
			state.Max = price
		}
		if state.Max > 0 && price <= state.Max*(1-e.BuyDropPct) {
			state.Status = domain.StatusArmedDrop
			state.Min = price
		}
		return false

	case domain.StatusArmedDrop:
		if price < state.Min {
			state.Min = price
			return false
		}
		if price < state.Min*(1+e.TrailRecoveryPct) {
			return false
		}
		// Recovery confirmed; require the broader trend to be growing.
		return window.Full() && window.ChangePct(price) >= e.TrendChangePct

	default:
		return false
	}
}

var _ Entry = (*BuyDropInGrowthTrend)(nil)
