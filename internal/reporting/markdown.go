package reporting

import (
	"fmt"
	"strings"
	"time"

	"regime-tier-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s\n\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Regime reference: %s | Window: %s .. %s | Tier mode: %s\n\n",
		r.RefSymbol,
		r.Params.StartDate.Format(domain.DateLayout),
		r.Params.EndDate.Format(domain.DateLayout),
		r.Params.TierMode))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Start Equity | %.2f |\n", s.StartEquity))
	sb.WriteString(fmt.Sprintf("| Final Equity | %.2f |\n", s.FinalEquity))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", s.TotalReturn))
	sb.WriteString(fmt.Sprintf("| CAGR | %.2f%% |\n", s.CAGR))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", s.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Ulcer Index | %.2f |\n", s.UlcerIndex))
	sb.WriteString(fmt.Sprintf("| Martin Ratio | %.2f |\n", s.MartinRatio))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.Trades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Trade Quality | %.3f |\n", s.TradeQuality))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", s.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Avg Invested | %.1f%% |\n", s.AvgInvestedPct))
	sb.WriteString("\n")

	// Yearly
	if len(r.Years) > 0 {
		sb.WriteString("## Yearly Returns\n\n")
		sb.WriteString("| Year | Start | End | Return | Max DD | Days |\n")
		sb.WriteString("|------|-------|-----|--------|--------|------|\n")
		for _, y := range r.Years {
			sb.WriteString(fmt.Sprintf("| %d | %.2f | %.2f | %.2f%% | %.2f%% | %d |\n",
				y.Year, y.StartEquity, y.EndEquity, y.ReturnPct, y.MaxDrawdown, y.Days))
		}
		sb.WriteString("\n")
	}

	// Exit breakdown
	sb.WriteString("## Exits\n\n")
	sb.WriteString("| Exit | Trades | Wins | PnL | Avg PnL% |\n")
	sb.WriteString("|------|--------|------|-----|----------|\n")
	for _, e := range r.Exits {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f |\n",
			e.Kind, e.Trades, e.Wins, e.PnL, e.AvgPnLPct))
	}
	sb.WriteString("\n")

	sb.WriteString("## Regimes\n\n")
	sb.WriteString("| Regime | Trades | Wins | PnL | Avg PnL% |\n")
	sb.WriteString("|--------|--------|------|-----|----------|\n")
	for _, g := range r.Regimes {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f |\n",
			g.Regime, g.Trades, g.Wins, g.PnL, g.AvgPnLPct))
	}

	return sb.String()
}
