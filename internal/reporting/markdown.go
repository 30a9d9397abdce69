package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"coin-strategy-lab/internal/campaign"
)

// RenderCampaignMarkdown renders a single-window campaign summary.
func RenderCampaignMarkdown(result *campaign.RunResult, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Campaign Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Symbols optimized: %d | Skipped: %d\n\n",
		len(result.Selected), len(result.Skipped)))

	sb.WriteString("## Selected Configurations\n\n")
	if len(result.Selected) > 0 {
		sb.WriteString("| Symbol | Strategy | BuyDrop | SellAt | StopLoss | Profit | CleanWins | StopLosses |\n")
		sb.WriteString("|--------|----------|---------|--------|----------|--------|-----------|------------|\n")
		for _, symbol := range sortedSymbols(result.Selected) {
			r := result.Selected[symbol]
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f | %.4f | %.6f | %d | %d |\n",
				r.Symbol, r.Config.Strategy,
				r.Config.BuyDropPct, r.Config.SellAtPct, r.Config.StopLossPct,
				r.TotalProfit, r.CleanWins, r.StopLosses))
		}
	} else {
		sb.WriteString("No configurations selected.\n")
	}
	sb.WriteString("\n")

	writeSkipped(&sb, result.Skipped)

	return sb.String()
}

// RenderProveMarkdown renders a rolling-window validation summary.
func RenderProveMarkdown(result *campaign.ProveResult, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Prove Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", generatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Windows: %d\n\n", len(result.Windows)))

	sb.WriteString("## Forward Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Profit | %.6f |\n", result.ForwardProfit))
	sb.WriteString(fmt.Sprintf("| Clean Wins | %d |\n", result.ForwardCleanWins))
	sb.WriteString(fmt.Sprintf("| Stop Losses | %d |\n", result.ForwardStopLosses))
	sb.WriteString(fmt.Sprintf("| Stale Sells | %d |\n", result.ForwardStales))
	sb.WriteString("\n")

	sb.WriteString("## Windows\n\n")
	if len(result.Windows) > 0 {
		sb.WriteString("| Train Start | Live Start | Live End | Selected | Forward Profit | Skipped |\n")
		sb.WriteString("|-------------|------------|----------|----------|----------------|--------|\n")
		for _, w := range result.Windows {
			var profit float64
			for _, f := range w.Forward {
				profit += f.TotalProfit
			}
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %.6f | %d |\n",
				w.TrainStart, w.LiveStart, w.LiveEnd,
				len(w.Selected), profit, len(w.Skipped)))
		}
	} else {
		sb.WriteString("No windows completed.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func writeSkipped(sb *strings.Builder, skipped []campaign.SkippedSymbol) {
	sb.WriteString("## Skipped Instruments\n\n")
	if len(skipped) == 0 {
		sb.WriteString("None.\n\n")
		return
	}
	for _, s := range skipped {
		sb.WriteString(fmt.Sprintf("- %s: %v\n", s.Symbol, s.Err))
	}
	sb.WriteString("\n")
}

func sortedSymbols[V any](m map[string]V) []string {
	symbols := make([]string, 0, len(m))
	for symbol := range m {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
