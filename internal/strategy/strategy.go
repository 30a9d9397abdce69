package strategy

import (
	"coin-strategy-lab/internal/domain"
)

// Entry is the pluggable entry predicate of the trade state machine.
// All strategy variants share the same exit logic; they differ only in
// when they decide to open a position.
//
// Evaluate is called for every price event while no position is open
// (IDLE or ARMED_DROP). It may move the state between IDLE and ARMED_DROP
// and update the entry reference prices; it returns true when a BUY
// should fire at the current price.
type Entry interface {
	Evaluate(state *domain.CoinState, window *PriceWindow, now int64, price float64) bool
	Name() string
}
