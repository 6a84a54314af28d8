package sensitivity

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regime-tier-lab/internal/batch"
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/metrics"
	"regime-tier-lab/internal/simulation"
)

func weekdayBars(n int, price func(i int) float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, n)
	day := domain.MustParseDate("2021-01-04")
	for len(bars) < n {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			c := price(len(bars))
			bars = append(bars, domain.PriceBar{Date: day, Open: c, High: c, Low: c, Close: c})
		}
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

// wave oscillates around 100 with a slow drift so exits of both kinds occur.
func wave(i int) float64 {
	return 100 + 6*math.Sin(float64(i)/4) + float64(i)*0.02
}

func baseParams(bars []domain.PriceBar) domain.SimulationParams {
	return domain.SimulationParams{
		InitialCapital: 10000,
		StartDate:      bars[0].Date,
		EndDate:        bars[len(bars)-1].Date,
		TierMode:       domain.TierModeSequential,
		Safe:           domain.RegimeParams{BuyLimitPct: 1, TargetPct: 2, HoldingDayLimit: 20, TierWeights: []float64{30, 30, 40}},
		Offensive:      domain.RegimeParams{BuyLimitPct: 2, TargetPct: 3, HoldingDayLimit: 10, TierWeights: []float64{25, 25, 25, 25}},
		Rebalance:      domain.RebalanceParams{ProfitAddPct: 50, LossSubPct: 30},
	}
}

func TestAnalyzer_CenterMatchesStandaloneRun(t *testing.T) {
	bars := weekdayBars(260, wave)
	params := baseParams(bars)
	engine := simulation.NewEngine(bars)

	var calls [][2]int
	report, err := NewAnalyzer(engine, DefaultConfig(), zerolog.Nop()).Run(context.Background(), bars, params, func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	})
	require.NoError(t, err)

	res, err := engine.Run(bars, params, nil)
	require.NoError(t, err)

	assert.Equal(t, metrics.Summarize(res).CAGR, report.CenterReturn)

	require.Len(t, report.Grid, 15)
	for _, row := range report.Grid {
		assert.Len(t, row, 15)
	}
	assert.Len(t, report.Cells, 225)
	assert.Equal(t, report.CenterReturn, report.Grid[7][7])
	assert.LessOrEqual(t, report.MinReturn, report.MeanReturn)
	assert.GreaterOrEqual(t, report.MaxReturn, report.MeanReturn)

	require.Len(t, calls, 23)
	assert.Equal(t, [2]int{10, 225}, calls[0])
	assert.Equal(t, [2]int{225, 225}, calls[22])

	if report.CenterReturn > 0 {
		assert.InDelta(t, report.MeanReturn/report.CenterReturn, report.StabilityRatio, 1e-12)
	} else {
		assert.Equal(t, 0.0, report.StabilityRatio)
	}
}

func TestAnalyzer_CellLayout(t *testing.T) {
	bars := weekdayBars(60, wave)
	cfg := Config{Steps: 1, Step: 0.5, Batch: batch.Config{BatchSize: 4, Workers: 2}}

	report, err := NewAnalyzer(simulation.NewEngine(bars), cfg, zerolog.Nop()).Run(context.Background(), bars, baseParams(bars), nil)
	require.NoError(t, err)

	require.Len(t, report.Cells, 9)
	assert.Equal(t, -1, report.Cells[0].X)
	assert.Equal(t, -1, report.Cells[0].Y)
	assert.Equal(t, -0.5, report.Cells[0].BuyLimitAdj)
	assert.Equal(t, 1, report.Cells[5].X)
	assert.Equal(t, 0, report.Cells[5].Y)
	for i, c := range report.Cells {
		assert.Equal(t, report.Grid[c.Y+1][c.X+1], c.CAGR, "cell %d", i)
	}
}

func TestAnalyzer_FlatSeriesHasZeroStability(t *testing.T) {
	bars := weekdayBars(80, func(int) float64 { return 50 })
	cfg := Config{Steps: 2, Step: 0.3, Batch: batch.Config{BatchSize: 10, Workers: 2}}

	report, err := NewAnalyzer(simulation.NewEngine(bars), cfg, zerolog.Nop()).Run(context.Background(), bars, baseParams(bars), nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, report.CenterReturn)
	assert.Equal(t, 0.0, report.StabilityRatio)
	assert.Equal(t, 0.0, report.MinReturn)
	assert.Equal(t, 0.0, report.MaxReturn)
}

func TestPerturb(t *testing.T) {
	base := domain.SimulationParams{
		Safe:      domain.RegimeParams{BuyLimitPct: 3, TargetPct: 0.2, TierWeights: []float64{100}},
		Offensive: domain.RegimeParams{BuyLimitPct: -1, TargetPct: 2.5, TierWeights: []float64{100}},
	}

	p := Perturb(base, 0.6, -0.3)
	assert.InDelta(t, 3.6, p.Safe.BuyLimitPct, 1e-12)
	assert.Equal(t, 0.0, p.Safe.TargetPct)
	assert.Equal(t, 0.0, p.Offensive.BuyLimitPct)
	assert.InDelta(t, 2.2, p.Offensive.TargetPct, 1e-12)

	same := Perturb(base, 0, 0)
	assert.Equal(t, base, same)

	p.Safe.TierWeights[0] = 1
	assert.Equal(t, 100.0, base.Safe.TierWeights[0])
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Equal(t, 15, DefaultConfig().Size())

	bad := DefaultConfig()
	bad.Step = 0
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))

	bad = DefaultConfig()
	bad.Steps = -1
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))

	bad = DefaultConfig()
	bad.Batch.Workers = 0
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidConfig))
	assert.True(t, errors.Is(bad.Validate(), batch.ErrInvalidConfig))
}
