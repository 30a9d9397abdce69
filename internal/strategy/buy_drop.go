package strategy

import (
	"coin-strategy-lab/internal/domain"
)

// BuyDropSellRecovery arms when the price falls BuyDropPct below the rolling
// maximum, then buys once the price bounces BuyRecoveryPct above the local
// minimum recorded since arming. Buying on the bounce rather than the drop
// itself avoids catching a price still in free fall.
type BuyDropSellRecovery struct {
	BuyDropPct     float64
	BuyRecoveryPct float64
}

// NewBuyDropSellRecovery creates the drop-then-recovery entry predicate.
func NewBuyDropSellRecovery(buyDropPct, buyRecoveryPct float64) *BuyDropSellRecovery {
	return &BuyDropSellRecovery{BuyDropPct: buyDropPct, BuyRecoveryPct: buyRecoveryPct}
}

// Name returns the strategy variant identifier.
func (e *BuyDropSellRecovery) Name() string { return domain.StrategyBuyDropSellRecovery }

// Evaluate implements Entry.
func (e *BuyDropSellRecovery) Evaluate(state *domain.CoinState, _ *PriceWindow, _ int64, price float64) bool {
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
		return price >= state.Min*(1+e.BuyRecoveryPct)

	default:
		return false
	}
}

var _ Entry = (*BuyDropSellRecovery)(nil)
