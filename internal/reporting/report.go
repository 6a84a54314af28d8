// Package reporting renders a simulation run as a Markdown report and CSV exports.
package reporting

import (
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/metrics"
)

// Report is the rendered view of one simulation run.
type Report struct {
	GeneratedAt time.Time
	RunID       string
	Symbol      string
	RefSymbol   string
	Params      domain.SimulationParams
	Summary     metrics.Summary

	// Yearly rows in calendar order
	Years []YearRow

	Exits   []ExitRow
	Regimes []RegimeRow
}

// YearRow is one calendar year of the daily log.
type YearRow struct {
	Year        int
	StartEquity float64
	EndEquity   float64
	ReturnPct   float64
	MaxDrawdown float64 // %, <= 0
	Days        int
}

// ExitRow counts filled trades closed by one exit rule.
type ExitRow struct {
	Kind      domain.ExitKind
	Trades    int
	Wins      int
	PnL       float64
	AvgPnLPct float64
}

// RegimeRow counts filled trades by regime at entry.
type RegimeRow struct {
	Regime    domain.Regime
	Trades    int
	Wins      int
	PnL       float64
	AvgPnLPct float64
}

// Build assembles a report from a simulation result.
func Build(runID, symbol, refSymbol string, res *domain.SimulationResult, generatedAt time.Time) *Report {
	return &Report{
		GeneratedAt: generatedAt,
		RunID:       runID,
		Symbol:      symbol,
		RefSymbol:   refSymbol,
		Params:      res.Params,
		Summary:     metrics.Summarize(res),
		Years:       yearRows(res.DailyLog),
		Exits:       exitRows(res.ClosedTrades),
		Regimes:     regimeRows(res.ClosedTrades),
	}
}

func yearRows(log []domain.DailyLogEntry) []YearRow {
	var rows []YearRow
	var peak float64
	for i, d := range log {
		y := d.Date.Year()
		if len(rows) == 0 || rows[len(rows)-1].Year != y {
			start := d.TotalAsset
			if i > 0 {
				start = log[i-1].TotalAsset
			}
			rows = append(rows, YearRow{Year: y, StartEquity: start})
			peak = start
		}
		row := &rows[len(rows)-1]
		row.EndEquity = d.TotalAsset
		row.Days++
		if d.TotalAsset > peak {
			peak = d.TotalAsset
		}
		if peak > 0 {
			if dd := (d.TotalAsset - peak) / peak * 100; dd < row.MaxDrawdown {
				row.MaxDrawdown = dd
			}
		}
	}
	for i := range rows {
		if rows[i].StartEquity > 0 {
			rows[i].ReturnPct = (rows[i].EndEquity/rows[i].StartEquity - 1) * 100
		}
	}
	return rows
}

func exitRows(trades []domain.ClosedTrade) []ExitRow {
	order := []domain.ExitKind{domain.ExitKindTarget, domain.ExitKindForced}
	rows := make([]ExitRow, len(order))
	for i, k := range order {
		rows[i].Kind = k
	}
	for _, t := range trades {
		if t.Quantity == 0 {
			continue
		}
		for i := range rows {
			if rows[i].Kind != t.ExitKind {
				continue
			}
			rows[i].Trades++
			rows[i].PnL += t.PnL
			rows[i].AvgPnLPct += t.PnLPct
			if t.PnL > 0 {
				rows[i].Wins++
			}
		}
	}
	for i := range rows {
		if rows[i].Trades > 0 {
			rows[i].AvgPnLPct /= float64(rows[i].Trades)
		}
	}
	return rows
}

func regimeRows(trades []domain.ClosedTrade) []RegimeRow {
	rows := []RegimeRow{{Regime: domain.RegimeSafe}, {Regime: domain.RegimeOffensive}}
	for _, t := range trades {
		if t.Quantity == 0 {
			continue
		}
		for i := range rows {
			if rows[i].Regime != t.RegimeAtEntry {
				continue
			}
			rows[i].Trades++
			rows[i].PnL += t.PnL
			rows[i].AvgPnLPct += t.PnLPct
			if t.PnL > 0 {
				rows[i].Wins++
			}
		}
	}
	for i := range rows {
		if rows[i].Trades > 0 {
			rows[i].AvgPnLPct /= float64(rows[i].Trades)
		}
	}
	return rows
}
