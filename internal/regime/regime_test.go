package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regime-tier-lab/internal/domain"
)

// makeDailyBars builds one bar per weekday starting at start, using closes in order.
func makeDailyBars(start time.Time, closes []float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, len(closes))
	day := start
	for _, c := range closes {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		bars = append(bars, domain.PriceBar{Date: day, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10})
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

// makeWeekly builds weekly bars with consecutive ISO weeks from the given closes.
func makeWeekly(closes []float64) []domain.WeeklyBar {
	start := domain.MustParseDate("2020-01-06") // Monday
	out := make([]domain.WeeklyBar, len(closes))
	for i, c := range closes {
		d := start.AddDate(0, 0, 7*i)
		out[i] = domain.WeeklyBar{Key: domain.WeekKey(d), Start: d, End: d.AddDate(0, 0, 4), Close: c}
	}
	return out
}

func TestAggregateWeekly(t *testing.T) {
	// Mon 2024-01-08 .. Fri 2024-01-19: two ISO weeks
	bars := makeDailyBars(domain.MustParseDate("2024-01-08"), []float64{10, 11, 12, 9, 13, 14, 15, 16, 17, 18})

	weekly := AggregateWeekly(bars)
	require.Len(t, weekly, 2)

	assert.Equal(t, "2024-W02", weekly[0].Key)
	assert.Equal(t, 13.0, weekly[0].Close)
	assert.Equal(t, 10.0, weekly[0].Open)
	assert.Equal(t, 14.0, weekly[0].High)
	assert.Equal(t, 8.0, weekly[0].Low)
	assert.Equal(t, 50.0, weekly[0].Volume)
	assert.Equal(t, domain.MustParseDate("2024-01-12"), weekly[0].End)

	assert.Equal(t, "2024-W03", weekly[1].Key)
	assert.Equal(t, 18.0, weekly[1].Close)
}

func TestAggregateWeekly_ISOYearBoundary(t *testing.T) {
	// 2024-12-30 (Mon) belongs to ISO week 2025-W01 together with 2025-01-02.
	bars := []domain.PriceBar{
		{Date: domain.MustParseDate("2024-12-27"), Close: 1},
		{Date: domain.MustParseDate("2024-12-30"), Close: 2},
		{Date: domain.MustParseDate("2025-01-02"), Close: 3},
	}

	weekly := AggregateWeekly(bars)
	require.Len(t, weekly, 2)
	assert.Equal(t, "2024-W52", weekly[0].Key)
	assert.Equal(t, "2025-W01", weekly[1].Key)
	assert.Equal(t, 3.0, weekly[1].Close)
}

func TestComputeRSI_UndefinedWarmup(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(100 + i)
	}

	rsi, ok := ComputeRSI(closes, RSIPeriod)
	for i := 0; i < RSIPeriod; i++ {
		assert.False(t, ok[i], "week %d should be undefined", i)
	}
	for i := RSIPeriod; i < len(closes); i++ {
		assert.True(t, ok[i])
		assert.InDelta(t, 100.0, rsi[i], 1e-9, "monotonic rise has no losses")
	}
}

func TestComputeRSI_SimpleAverage(t *testing.T) {
	// 15 closes -> 14 diffs: 7 gains of 2, 7 losses of 1
	closes := []float64{100}
	for i := 0; i < 14; i++ {
		last := closes[len(closes)-1]
		if i%2 == 0 {
			closes = append(closes, last+2)
		} else {
			closes = append(closes, last-1)
		}
	}

	rsi, ok := ComputeRSI(closes, RSIPeriod)
	require.True(t, ok[14])
	// avgGain = 1, avgLoss = 0.5, RS = 2
	assert.InDelta(t, 100-100/3.0, rsi[14], 1e-9)
}

func TestComputeRSI_ShortSeries(t *testing.T) {
	rsi, ok := ComputeRSI([]float64{1, 2, 3}, RSIPeriod)
	assert.Len(t, rsi, 3)
	for _, v := range ok {
		assert.False(t, v)
	}
}

func TestStep_Transitions(t *testing.T) {
	tests := []struct {
		name   string
		from   domain.Regime
		prev   float64
		cur    float64
		expect domain.Regime
	}{
		{"falling from overbought", domain.RegimeOffensive, 72, 68, domain.RegimeSafe},
		{"falling inside 40-50", domain.RegimeOffensive, 48, 45, domain.RegimeSafe},
		{"cross down 50", domain.RegimeOffensive, 52, 49, domain.RegimeSafe},
		{"cross up 50", domain.RegimeSafe, 48, 51, domain.RegimeOffensive},
		{"rising in bull zone", domain.RegimeSafe, 55, 60, domain.RegimeOffensive},
		{"rising oversold", domain.RegimeSafe, 25, 30, domain.RegimeOffensive},
		{"rising 35-50 persists safe", domain.RegimeSafe, 38, 42, domain.RegimeSafe},
		{"rising 35-50 persists offensive", domain.RegimeOffensive, 38, 42, domain.RegimeOffensive},
		{"falling below 40 persists", domain.RegimeOffensive, 38, 36, domain.RegimeOffensive},
		{"rising above 70 persists safe", domain.RegimeSafe, 71, 75, domain.RegimeSafe},
		{"flat persists", domain.RegimeOffensive, 55, 55, domain.RegimeOffensive},
		{"falling 50-65 persists offensive", domain.RegimeOffensive, 62, 58, domain.RegimeOffensive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Regime: tt.from, LastRSI: tt.prev, HasRSI: true}
			next := Step(s, tt.cur, true)
			assert.Equal(t, tt.expect, next.Regime)
			assert.Equal(t, tt.cur, next.LastRSI)
			assert.True(t, next.HasRSI)
		})
	}
}

func TestStep_UndefinedPersists(t *testing.T) {
	s := State{Regime: domain.RegimeOffensive, LastRSI: 60, HasRSI: true}

	next := Step(s, 0, false)
	assert.Equal(t, domain.RegimeOffensive, next.Regime)
	assert.False(t, next.HasRSI)

	// first defined week after warmup has no previous RSI and persists too
	next = Step(next, 80, true)
	assert.Equal(t, domain.RegimeOffensive, next.Regime)
	assert.True(t, next.HasRSI)
}

func TestClassifier_Deterministic(t *testing.T) {
	closes := []float64{
		100, 102, 101, 105, 103, 108, 110, 107, 104, 101,
		99, 97, 100, 104, 109, 112, 111, 106, 101, 98,
		95, 97, 101, 106, 110, 115, 113, 109, 104, 100,
	}
	weekly := makeWeekly(closes)

	first := NewClassifierFromWeekly(weekly).Regimes()
	second := NewClassifierFromWeekly(weekly).Regimes()
	assert.Equal(t, first, second)

	for i := 0; i <= RSIPeriod; i++ {
		assert.Equal(t, domain.RegimeSafe, first[i], "warmup week %d must stay Safe", i)
	}
}

func TestClassifier_ModeForUsesPreviousWeek(t *testing.T) {
	// Rising then sharply falling closes: Offensive appears after warmup.
	closes := make([]float64, 0, 25)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i)*(1+float64(i%2)))
	}
	closes = append(closes, 140, 150, 160, 130, 120, 110, 100, 90, 80, 70)
	weekly := makeWeekly(closes)
	c := NewClassifierFromWeekly(weekly)
	weeks := c.Weeks()

	for i := 1; i < len(weeks); i++ {
		day := weeks[i].Bar.Start.AddDate(0, 0, 2) // Wednesday of week i
		assert.Equal(t, weeks[i-1].Regime, c.ModeFor(day), "week %d must use week %d regime", i, i-1)
	}

	assert.Equal(t, domain.RegimeSafe, c.ModeFor(weeks[0].Bar.Start))
	assert.Equal(t, domain.RegimeSafe, c.ModeFor(domain.MustParseDate("1999-01-04")), "unknown week")
}
