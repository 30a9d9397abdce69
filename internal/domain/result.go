package domain

// BacktestResult is the outcome of replaying one price sequence through
// one configuration: the ordered trade ledger plus derived aggregates.
type BacktestResult struct {
	Symbol string
	Config StrategyConfig

	Trades []*TradeRecord

	EventCount   int
	TotalProfit  float64
	CleanWins    int
	StopLosses   int
	Stales       int
	StillHolding int
	MaxDrawdown  float64
}

// CleanWinProfit sums realized profit over CLEAN_WIN trades only.
func (r *BacktestResult) CleanWinProfit() float64 {
	var total float64
	for _, t := range r.Trades {
		if t.Outcome == OutcomeCleanWin {
			total += t.Profit
		}
	}
	return total
}

// OptimizationResult is the selected configuration for one symbol together
// with the backtest that justified it and the scoring policy used.
type OptimizationResult struct {
	Symbol  string          `json:"symbol"`
	Config  StrategyConfig  `json:"config"`
	Result  *BacktestResult `json:"-"`
	Scoring string          `json:"scoring"`

	// Derived from Result, duplicated here so the record stays flat and
	// serializable for the config-distribution endpoint.
	TotalProfit float64 `json:"total_profit"`
	CleanWins   int     `json:"clean_wins"`
	StopLosses  int     `json:"stop_losses"`
}

// NewOptimizationResult flattens the winning backtest into a distributable record.
func NewOptimizationResult(symbol string, cfg StrategyConfig, res *BacktestResult, scoring string) *OptimizationResult {
	return &OptimizationResult{
		Symbol:      symbol,
		Config:      cfg,
		Result:      res,
		Scoring:     scoring,
		TotalProfit: res.TotalProfit,
		CleanWins:   res.CleanWins,
		StopLosses:  res.StopLosses,
	}
}
