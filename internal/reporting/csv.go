package reporting

import (
	"fmt"
	"strings"

	"regime-tier-lab/internal/domain"
)

// RenderTradesCSV renders filled closed trades as CSV, in exit order.
func RenderTradesCSV(trades []domain.ClosedTrade) string {
	var sb strings.Builder

	sb.WriteString("ledger_row,entry_date,exit_date,regime,quantity,entry_price,exit_price,")
	sb.WriteString("pnl,pnl_pct,fees,days_held,exit_kind\n")

	for _, t := range trades {
		if t.Quantity == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%d,%.4f,%.4f,%.4f,%.4f,%.4f,%d,%s\n",
			t.LedgerRowID,
			t.EntryDate.Format(domain.DateLayout),
			t.ExitDate.Format(domain.DateLayout),
			t.RegimeAtEntry,
			t.Quantity,
			t.EntryPrice,
			t.ExitPrice,
			t.PnL,
			t.PnLPct,
			t.Fees,
			t.DaysHeld,
			t.ExitKind,
		))
	}

	return sb.String()
}

// RenderDailyCSV renders the daily equity log as CSV.
func RenderDailyCSV(log []domain.DailyLogEntry) string {
	var sb strings.Builder

	sb.WriteString("date,total_asset,cash,price,drawdown\n")
	for _, d := range log {
		sb.WriteString(fmt.Sprintf("%s,%.4f,%.4f,%.4f,%.4f\n",
			d.Date.Format(domain.DateLayout), d.TotalAsset, d.Cash, d.Price, d.Drawdown))
	}

	return sb.String()
}
