package domain

// Outcome tags for a completed buy→sell cycle.
const (
	OutcomeCleanWin     = "CLEAN_WIN"
	OutcomeStopLoss     = "STOP_LOSS"
	OutcomeStale        = "STALE_FORCED_SELL"
	OutcomeStillHolding = "STILL_HOLDING_AT_END"
)

// TradeRecord is the immutable result of one completed buy→sell cycle.
type TradeRecord struct {
	Symbol    string
	BuyTime   int64
	BuyPrice  float64
	SellTime  int64
	SellPrice float64

	// Profit is the realized result net of trading fees on both sides,
	// expressed per unit of the instrument.
	Profit  float64
	Outcome string
}

// NewTradeRecord builds a record with fee-adjusted profit.
func NewTradeRecord(symbol string, buyTime int64, buyPrice float64, sellTime int64, sellPrice float64, feePct float64, outcome string) *TradeRecord {
	return &TradeRecord{
		Symbol:    symbol,
		BuyTime:   buyTime,
		BuyPrice:  buyPrice,
		SellTime:  sellTime,
		SellPrice: sellPrice,
		Profit:    sellPrice*(1-feePct) - buyPrice*(1+feePct),
		Outcome:   outcome,
	}
}
