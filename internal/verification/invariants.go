package verification

import (
	"fmt"
	"math"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/simulation"
)

// Invariant names.
const (
	InvariantTotalAsset   = "TOTAL_ASSET"   // total asset == cash + open quantity * close
	InvariantDrawdown     = "DRAWDOWN"      // drawdown <= 0 and never below the recorded max
	InvariantSellOnBuyRow = "SELL_ON_BUY"   // sell fields only on bought rows, after the buy
	InvariantExitRule     = "EXIT_RULE"     // target exits reach the target, forced exits hit the limit
	InvariantTrades       = "TRADES"        // closed trades mirror sold ledger rows
	InvariantFinalEquity  = "FINAL_EQUITY"  // final equity is the last total asset
	InvariantRebalanceLag = "REBALANCE_LAG" // rebalances land on the day after a cycle closes
)

// assetTolerance absorbs summation-order differences in cash accounting.
const assetTolerance = 1e-6

// Violation is one failed invariant check.
type Violation struct {
	Invariant string    `json:"invariant"`
	Date      time.Time `json:"date,omitempty"`
	Detail    string    `json:"detail"`
}

// CheckResult verifies the invariants of a simulation result produced with
// the given injections. It returns nil when the result is consistent.
func CheckResult(res *domain.SimulationResult, injections []domain.InjectionEvent) []Violation {
	var out []Violation
	report := func(inv string, date time.Time, format string, args ...any) {
		out = append(out, Violation{Invariant: inv, Date: date, Detail: fmt.Sprintf(format, args...)})
	}

	ledger := res.Ledger
	minDrawdown := 0.0

	injected := make(map[time.Time]float64, len(injections))
	for _, inj := range injections {
		injected[domain.Day(inj.Date)] += inj.Amount
	}

	for i, row := range ledger {
		// open quantity at today's close: bought on or before today, not sold by today
		var held int64
		for _, r := range ledger[:i+1] {
			if r.Bought && (!r.Sold || r.SellDate.After(row.Date)) {
				held += r.BuyQuantity
			}
		}
		want := row.Cash + float64(held)*row.Close
		if math.Abs(row.TotalAsset-want) > assetTolerance*math.Max(1, math.Abs(want)) {
			report(InvariantTotalAsset, row.Date, "total asset %.6f, cash + holdings %.6f", row.TotalAsset, want)
		}

		if row.Drawdown > 0 {
			report(InvariantDrawdown, row.Date, "positive drawdown %.6f", row.Drawdown)
		}
		minDrawdown = math.Min(minDrawdown, row.Drawdown)

		if row.Sold {
			if !row.Bought {
				report(InvariantSellOnBuyRow, row.Date, "sell fields on a row without a buy")
			}
			if !row.SellDate.After(row.Date) {
				report(InvariantSellOnBuyRow, row.Date, "sold %s, not after the buy", row.SellDate.Format(domain.DateLayout))
			}
			if row.SellQuantity != row.BuyQuantity {
				report(InvariantSellOnBuyRow, row.Date, "sold %d of %d", row.SellQuantity, row.BuyQuantity)
			}
		}

		rebalance := row.CapitalRefresh - injected[row.Date]
		onCycle := i > 0 && i%simulation.RebalanceCycleDays == 0
		if math.Abs(rebalance) > assetTolerance && !onCycle {
			report(InvariantRebalanceLag, row.Date, "rebalance %.6f outside a cycle boundary", rebalance)
		}
	}

	if len(ledger) > 0 && math.Abs(res.MaxDrawdown.Value-minDrawdown) > FloatTolerance {
		report(InvariantDrawdown, res.MaxDrawdown.Date, "max drawdown %.6f, deepest day %.6f", res.MaxDrawdown.Value, minDrawdown)
	}

	sold := 0
	for _, row := range ledger {
		if row.Sold {
			sold++
		}
	}
	if sold != len(res.ClosedTrades) {
		report(InvariantTrades, time.Time{}, "%d sold rows, %d closed trades", sold, len(res.ClosedTrades))
	}

	for _, t := range res.ClosedTrades {
		if t.LedgerRowID < 0 || t.LedgerRowID >= len(ledger) {
			report(InvariantTrades, t.ExitDate, "ledger row %d out of range", t.LedgerRowID)
			continue
		}
		row := ledger[t.LedgerRowID]
		if !row.Sold || !row.SellDate.Equal(t.ExitDate) || row.SellPrice != t.ExitPrice {
			report(InvariantTrades, t.ExitDate, "trade on row %d not written back", t.LedgerRowID)
		}

		switch t.ExitKind {
		case domain.ExitKindTarget:
			if t.ExitPrice < domain.Round2(row.TargetSellPrice) {
				report(InvariantExitRule, t.ExitDate, "target exit at %.2f below target %.2f", t.ExitPrice, domain.Round2(row.TargetSellPrice))
			}
		case domain.ExitKindForced:
			limit := res.Params.ForRegime(row.Regime).HoldingDayLimit
			if t.DaysHeld != limit {
				report(InvariantExitRule, t.ExitDate, "forced exit after %d days, limit %d", t.DaysHeld, limit)
			}
		}
	}

	if n := len(res.DailyLog); n > 0 && res.FinalEquity != res.DailyLog[n-1].TotalAsset {
		report(InvariantFinalEquity, res.DailyLog[n-1].Date, "final equity %.6f, last total asset %.6f", res.FinalEquity, res.DailyLog[n-1].TotalAsset)
	}

	return out
}
