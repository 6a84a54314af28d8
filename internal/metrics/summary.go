package metrics

import (
	"time"

	"regime-tier-lab/internal/domain"
)

// Summary holds the headline KPIs of one simulation run.
type Summary struct {
	StartEquity    float64   `json:"startEquity"`
	FinalEquity    float64   `json:"finalEquity"`
	TotalReturn    float64   `json:"totalReturn"` // %
	CAGR           float64   `json:"cagr"`        // %
	MaxDrawdown    float64   `json:"maxDrawdown"` // %, <= 0
	MaxDrawdownAt  time.Time `json:"maxDrawdownAt"`
	Trades         int       `json:"trades"`  // closed trades with quantity > 0
	WinRate        float64   `json:"winRate"` // %
	TradeQuality   float64   `json:"tradeQuality"`
	ProfitFactor   float64   `json:"profitFactor"`
	AvgInvestedPct float64   `json:"avgInvestedPct"`
	InvestedP5     float64   `json:"investedP5"`
	InvestedP95    float64   `json:"investedP95"`
	UlcerIndex     float64   `json:"ulcerIndex"`
	MartinRatio    float64   `json:"martinRatio"` // CAGR / ulcer index
}

// TradeReturns returns per-trade gross percentage returns of filled trades.
// Zero-quantity tier placeholders are excluded.
func TradeReturns(trades []domain.ClosedTrade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.Quantity > 0 {
			out = append(out, t.PnLPct)
		}
	}
	return out
}

// TradePnLs returns realized PnL of filled trades.
func TradePnLs(trades []domain.ClosedTrade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.Quantity > 0 {
			out = append(out, t.PnL)
		}
	}
	return out
}

// EquityCurve extracts total asset values of a daily log.
func EquityCurve(log []domain.DailyLogEntry) []float64 {
	out := make([]float64, len(log))
	for i, d := range log {
		out[i] = d.TotalAsset
	}
	return out
}

// WindowDays returns calendar days between two dates.
func WindowDays(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// Summarize computes run KPIs. CAGR is annualized over the configured
// window and measured against the initial capital.
func Summarize(res *domain.SimulationResult) Summary {
	start := res.Params.InitialCapital
	cagr := AnnualizedReturn(start, res.FinalEquity, WindowDays(res.Params.StartDate, res.Params.EndDate))

	returns := TradeReturns(res.ClosedTrades)

	s := Summary{
		StartEquity:   start,
		FinalEquity:   res.FinalEquity,
		TotalReturn:   TotalReturn(start, res.FinalEquity),
		CAGR:          cagr,
		MaxDrawdown:   res.MaxDrawdown.Value,
		MaxDrawdownAt: res.MaxDrawdown.Date,
		Trades:        len(returns),
		WinRate:       WinRate(returns),
		TradeQuality:  TradeQualityScore(returns),
		ProfitFactor:  ProfitFactor(TradePnLs(res.ClosedTrades)),
	}

	if n := len(res.DailyLog); n > 0 {
		invested := make([]float64, n)
		drawdowns := make([]float64, n)
		for i, d := range res.DailyLog {
			if d.TotalAsset != 0 {
				invested[i] = finite((d.TotalAsset - d.Cash) / d.TotalAsset * 100)
			}
			drawdowns[i] = d.Drawdown
		}
		s.AvgInvestedPct = Mean(invested)
		sorted := sortedCopy(invested)
		s.InvestedP5 = Percentile(sorted, 0.05)
		s.InvestedP95 = Percentile(sorted, 0.95)

		s.UlcerIndex = UlcerIndex(drawdowns)
		if s.UlcerIndex > 0 {
			s.MartinRatio = finite(cagr / s.UlcerIndex)
		}
	}

	return s
}
