// Package reporting renders campaign output as CSV and Markdown.
package reporting

import (
	"fmt"
	"strings"

	"coin-strategy-lab/internal/domain"
)

// RenderTradesCSV renders a trade ledger as a CSV string.
func RenderTradesCSV(trades []*domain.TradeRecord) string {
	var sb strings.Builder

	sb.WriteString("symbol,buy_time,buy_price,sell_time,sell_price,profit,outcome\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%d,%.8f,%d,%.8f,%.8f,%s\n",
			t.Symbol,
			t.BuyTime,
			t.BuyPrice,
			t.SellTime,
			t.SellPrice,
			t.Profit,
			t.Outcome,
		))
	}

	return sb.String()
}

// RenderSelectionsCSV renders selected configurations as a CSV string.
func RenderSelectionsCSV(results []*domain.OptimizationResult) string {
	var sb strings.Builder

	sb.WriteString("symbol,strategy,scoring,buy_drop_pct,buy_recovery_pct,sell_at_pct,")
	sb.WriteString("trail_target_sell_pct,stop_loss_pct,total_profit,clean_wins,stop_losses\n")

	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.6f,%.6f,%.6f,%.6f,%.8f,%d,%d\n",
			r.Symbol,
			r.Config.Strategy,
			r.Scoring,
			r.Config.BuyDropPct,
			r.Config.BuyRecoveryPct,
			r.Config.SellAtPct,
			r.Config.TrailTargetSellPct,
			r.Config.StopLossPct,
			r.TotalProfit,
			r.CleanWins,
			r.StopLosses,
		))
	}

	return sb.String()
}
