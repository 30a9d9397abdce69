package strategy

import (
	"coin-strategy-lab/internal/domain"
)

// BuyMoonSellRecovery buys on sustained upward momentum: the price must have
// risen at least TrendChangePct over the trend window. No drop arming is
// involved; the state stays IDLE until the buy fires.
type BuyMoonSellRecovery struct {
	TrendChangePct float64
}

// NewBuyMoonSellRecovery creates the momentum entry predicate.
func NewBuyMoonSellRecovery(trendChangePct float64) *BuyMoonSellRecovery {
	return &BuyMoonSellRecovery{TrendChangePct: trendChangePct}
}

// Name returns the strategy variant identifier.
func (e *BuyMoonSellRecovery) Name() string { return domain.StrategyBuyMoonSellRecovery }

// Evaluate implements Entry.
func (e *BuyMoonSellRecovery) Evaluate(state *domain.CoinState, window *PriceWindow, _ int64, price float64) bool {
	if price > state.Max {
		state.Max = price
	}
	if !window.Full() {
		return false
	}
	return window.ChangePct(price) >= e.TrendChangePct
}

var _ Entry = (*BuyMoonSellRecovery)(nil)
