package metrics

import (
	"math"
	"testing"
	"time"

	"regime-tier-lab/internal/domain"
)

func TestAnnualizedReturn(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		days       float64
		want       float64
	}{
		{"one year doubling", 100, 200, 365, 100},
		{"two years doubling", 100, 200, 730, (math.Sqrt(2) - 1) * 100},
		{"flat", 100, 100, 90, 0},
		{"zero elapsed time", 100, 120, 0, 0},
		{"negative elapsed time", 100, 120, -5, 0},
		{"zero start", 0, 120, 365, 0},
		{"wiped out", 100, 0, 365, -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AnnualizedReturn(tt.start, tt.end, tt.days)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AnnualizedReturn(%v, %v, %v) = %v, want %v", tt.start, tt.end, tt.days, got, tt.want)
			}
		})
	}
}

func TestTradeQualityScore(t *testing.T) {
	if got := TradeQualityScore(nil); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
	if got := TradeQualityScore([]float64{5}); got != 0 {
		t.Errorf("single trade: expected 0, got %v", got)
	}
	if got := TradeQualityScore([]float64{2, 2, 2}); got != 0 {
		t.Errorf("zero variance: expected 0, got %v", got)
	}

	// mean 2, sample stddev 1, n 3
	got := TradeQualityScore([]float64{1, 2, 3})
	want := 2 * math.Sqrt(3)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWinRate(t *testing.T) {
	if got := WinRate(nil); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
	if got := WinRate([]float64{1, -1, 0, 3}); got != 50 {
		t.Errorf("expected 50, got %v", got)
	}
}

func TestProfitFactor(t *testing.T) {
	if got := ProfitFactor([]float64{10, 20}); got != 0 {
		t.Errorf("no losses: expected 0, got %v", got)
	}
	if got := ProfitFactor(nil); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
	if got := ProfitFactor([]float64{30, -10, 10, -10}); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
}

func TestRSquared(t *testing.T) {
	if got := RSquared([]float64{1}); got != 0 {
		t.Errorf("single point: expected 0, got %v", got)
	}
	if got := RSquared([]float64{5, 5, 5, 5}); got != 0 {
		t.Errorf("flat: expected 0, got %v", got)
	}
	if got := RSquared([]float64{1, 3, 5, 7, 9}); math.Abs(got-1) > 1e-9 {
		t.Errorf("perfect line: expected 1, got %v", got)
	}

	got := RSquared([]float64{1, 3, 2, 5, 4})
	if got <= 0 || got >= 1 {
		t.Errorf("noisy series: expected (0,1), got %v", got)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 10},
		{0.5, 30},
		{0.25, 20},
		{0.1, 14},
		{1, 50},
	}
	for _, tt := range tests {
		if got := Percentile(sorted, tt.p); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
}

func TestMaxDrawdownPct(t *testing.T) {
	dd, at := MaxDrawdownPct([]float64{100, 120, 90, 110, 60, 130})
	if math.Abs(dd-(-50)) > 1e-9 {
		t.Errorf("expected -50, got %v", dd)
	}
	if at != 4 {
		t.Errorf("expected index 4, got %d", at)
	}

	dd, at = MaxDrawdownPct([]float64{100, 100, 101})
	if dd != 0 || at != -1 {
		t.Errorf("rising curve: expected (0, -1), got (%v, %d)", dd, at)
	}
}

func TestUlcerIndex(t *testing.T) {
	if got := UlcerIndex([]float64{0, -3, -4, 0}); math.Abs(got-math.Sqrt(25.0/4)) > 1e-9 {
		t.Errorf("unexpected ulcer index %v", got)
	}
	if got := UlcerIndex(nil); got != 0 {
		t.Errorf("empty: expected 0, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	start := domain.MustParseDate("2023-01-01")
	res := &domain.SimulationResult{
		Params: domain.SimulationParams{
			InitialCapital: 10000,
			StartDate:      start,
			EndDate:        start.AddDate(0, 0, 365),
		},
		FinalEquity: 12000,
		MaxDrawdown: domain.Drawdown{Value: -10, Date: start.AddDate(0, 0, 3)},
		ClosedTrades: []domain.ClosedTrade{
			{Quantity: 10, PnL: 300, PnLPct: 3},
			{Quantity: 10, PnL: -100, PnLPct: -1},
			{Quantity: 0, PnL: 0, PnLPct: 0},
			{Quantity: 5, PnL: 200, PnLPct: 4},
		},
		DailyLog: []domain.DailyLogEntry{
			{Date: start, TotalAsset: 10000, Cash: 10000},
			{Date: start.AddDate(0, 0, 1), TotalAsset: 10000, Cash: 5000, Drawdown: 0},
			{Date: start.AddDate(0, 0, 2), TotalAsset: 9000, Cash: 0, Drawdown: -10},
		},
	}

	s := Summarize(res)

	if s.Trades != 3 {
		t.Errorf("expected 3 filled trades, got %d", s.Trades)
	}
	if math.Abs(s.TotalReturn-20) > 1e-9 {
		t.Errorf("expected total return 20, got %v", s.TotalReturn)
	}
	if math.Abs(s.CAGR-20) > 1e-9 {
		t.Errorf("expected CAGR 20, got %v", s.CAGR)
	}
	if math.Abs(s.WinRate-200.0/3) > 1e-9 {
		t.Errorf("expected win rate 66.67, got %v", s.WinRate)
	}
	if s.ProfitFactor != 5 {
		t.Errorf("expected profit factor 5, got %v", s.ProfitFactor)
	}
	if math.Abs(s.AvgInvestedPct-50) > 1e-9 {
		t.Errorf("expected avg invested 50, got %v", s.AvgInvestedPct)
	}
	if s.InvestedP5 < 0 || s.InvestedP95 > 100 || s.InvestedP5 > s.InvestedP95 {
		t.Errorf("invalid invested band [%v, %v]", s.InvestedP5, s.InvestedP95)
	}
	if !s.MaxDrawdownAt.Equal(start.AddDate(0, 0, 3)) {
		t.Errorf("unexpected drawdown date %v", s.MaxDrawdownAt)
	}
	if s.MartinRatio <= 0 {
		t.Errorf("expected positive martin ratio, got %v", s.MartinRatio)
	}
}

func TestSummarize_EmptyRunHasNoNaN(t *testing.T) {
	res := &domain.SimulationResult{
		Params: domain.SimulationParams{
			InitialCapital: 10000,
			StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		FinalEquity: 10000,
	}

	s := Summarize(res)
	for name, v := range map[string]float64{
		"cagr": s.CAGR, "winRate": s.WinRate, "quality": s.TradeQuality,
		"pf": s.ProfitFactor, "invested": s.AvgInvestedPct, "martin": s.MartinRatio,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != 0 {
			t.Errorf("%s: expected 0, got %v", name, v)
		}
	}
}
