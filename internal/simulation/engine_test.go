package simulation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/normalization"
)

// makeBars builds daily bars on consecutive weekdays from 2024-01-02.
func makeBars(closes ...float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, 0, len(closes))
	day := domain.MustParseDate("2024-01-02")
	for _, c := range closes {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		bars = append(bars, domain.PriceBar{Date: day, Open: c, High: c, Low: c, Close: c})
		day = day.AddDate(0, 0, 1)
	}
	return bars
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func testParams() domain.SimulationParams {
	rp := domain.RegimeParams{
		BuyLimitPct:     0,
		TargetPct:       10,
		HoldingDayLimit: 30,
		TierWeights:     []float64{100},
	}
	return domain.SimulationParams{
		InitialCapital: 10000,
		StartDate:      domain.MustParseDate("2024-01-01"),
		EndDate:        domain.MustParseDate("2030-12-31"),
		TierMode:       domain.TierModeSequential,
		Safe:           rp,
		Offensive:      rp,
	}
}

func TestRun_CloseAboveTriggerDoesNotBuy(t *testing.T) {
	params := testParams()
	params.Safe.BuyLimitPct = 5

	res, err := Run(makeBars(100, 110), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 1)

	row := res.Ledger[0]
	assert.Equal(t, 105.0, row.TriggerPrice)
	assert.False(t, row.Bought)
	assert.Equal(t, domain.RegimeSafe, row.Regime)
	assert.Equal(t, 10000.0, res.FinalEquity)
	assert.Empty(t, res.FinalState.Positions)
}

func TestRun_FlatSeriesKeepsCapital(t *testing.T) {
	params := testParams()
	params.Safe.HoldingDayLimit = 5
	params.Safe.TierWeights = []float64{20, 20, 20}

	res, err := Run(makeBars(flat(60, 100)...), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.DailyLog, 59)

	assert.Equal(t, params.InitialCapital, res.FinalEquity)
	assert.Equal(t, 0.0, res.MaxDrawdown.Value)
	assert.True(t, res.MaxDrawdown.Date.IsZero())
	for _, tr := range res.ClosedTrades {
		assert.Equal(t, domain.ExitKindForced, tr.ExitKind)
		assert.Equal(t, 0.0, tr.PnL)
	}
}

func TestRun_TargetExitWritesOntoBuyRow(t *testing.T) {
	res, err := Run(makeBars(100, 99, 110), nil, testParams(), nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 2)

	buyRow := res.Ledger[0]
	require.True(t, buyRow.Bought)
	assert.Equal(t, int64(100), buyRow.BuyQuantity)
	assert.Equal(t, 99.0, buyRow.BuyPrice)

	assert.True(t, buyRow.Sold)
	assert.Equal(t, res.Ledger[1].Date, buyRow.SellDate)
	assert.Equal(t, 110.0, buyRow.SellPrice)
	assert.Equal(t, domain.ExitKindTarget, buyRow.ExitKind)
	assert.InDelta(t, 1100.0, buyRow.RealizedPnL, 1e-9)
	assert.InDelta(t, 11.0/99*100, buyRow.RealizedPct, 1e-9)

	sellDay := res.Ledger[1]
	assert.False(t, sellDay.Sold, "sale must not be written on the sale day row")
	assert.InDelta(t, 1100.0, sellDay.AccumulatedPnL, 1e-9)

	require.Len(t, res.ClosedTrades, 1)
	assert.Equal(t, 0, res.ClosedTrades[0].LedgerRowID)
	assert.Equal(t, 1, res.ClosedTrades[0].DaysHeld)
	assert.InDelta(t, 11100.0, res.FinalEquity, 1e-9)
}

func TestRun_TargetPriorityOverForcedExit(t *testing.T) {
	params := testParams()
	params.Safe.HoldingDayLimit = 1

	res, err := Run(makeBars(100, 99, 110), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.ClosedTrades, 1)
	assert.Equal(t, domain.ExitKindTarget, res.ClosedTrades[0].ExitKind)
}

func TestRun_ForcedExitAtHoldingLimit(t *testing.T) {
	params := testParams()
	params.Safe.HoldingDayLimit = 2
	params.Safe.BuyLimitPct = -5

	// buy at 94, then drift without reaching target 103.4 or the next trigger
	res, err := Run(makeBars(100, 94, 95, 96), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.ClosedTrades, 1)

	tr := res.ClosedTrades[0]
	assert.Equal(t, domain.ExitKindForced, tr.ExitKind)
	assert.Equal(t, 2, tr.DaysHeld)
	assert.Equal(t, 96.0, tr.ExitPrice)
	assert.Equal(t, res.Ledger[2].Date, tr.ExitDate)
}

func TestRun_TierModes(t *testing.T) {
	// day 1 buys tier 1 at 100; day 2 exits on target and qualifies for another buy
	closes := []float64{100, 100, 111}

	tests := []struct {
		name     string
		mode     domain.TierMode
		wantTier int
	}{
		{"sequential ignores same-day exits", domain.TierModeSequential, 2},
		{"real tier counts post-exit positions", domain.TierModeRealTier, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := testParams()
			params.TierMode = tt.mode
			params.Safe.BuyLimitPct = 20
			params.Safe.TierWeights = []float64{50, 50}

			res, err := Run(makeBars(closes...), nil, params, nil)
			require.NoError(t, err)
			require.Len(t, res.Ledger, 2)

			assert.Equal(t, 1, res.Ledger[0].Tier)
			assert.True(t, res.Ledger[0].Sold)
			assert.Equal(t, tt.wantTier, res.Ledger[1].Tier)
			assert.True(t, res.Ledger[1].Bought)
		})
	}
}

func TestRun_ZeroQuantityBuyAdvancesTier(t *testing.T) {
	params := testParams()
	params.Safe.TierWeights = []float64{0, 100}

	res, err := Run(makeBars(100, 100, 100), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 2)

	assert.True(t, res.Ledger[0].Bought)
	assert.Equal(t, int64(0), res.Ledger[0].BuyQuantity)
	assert.Equal(t, 10000.0, res.Ledger[0].Cash)

	assert.Equal(t, 2, res.Ledger[1].Tier)
	assert.Equal(t, int64(100), res.Ledger[1].BuyQuantity)
	assert.Len(t, res.FinalState.Positions, 2)
}

func TestRun_CashAffordability(t *testing.T) {
	params := testParams()
	params.FeeRatePct = 1

	res, err := Run(makeBars(100, 100), nil, params, nil)
	require.NoError(t, err)

	row := res.Ledger[0]
	assert.Equal(t, int64(100), row.TargetQuantity)
	assert.Equal(t, int64(99), row.BuyQuantity)
	assert.InDelta(t, 99.0, row.Fee, 1e-9)
	assert.InDelta(t, 10000-9900-99.0, row.Cash, 1e-9)
}

func TestRun_FeesOnBothLegs(t *testing.T) {
	params := testParams()
	params.FeeRatePct = 0.1
	params.Safe.TierWeights = []float64{50}

	res, err := Run(makeBars(100, 99, 110), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.ClosedTrades, 1)

	tr := res.ClosedTrades[0]
	// floor(5000 / 100) = 50 shares bought at 99
	entry := 50 * 99.0
	exit := 50 * 110.0
	assert.InDelta(t, exit-entry-exit*0.001-entry*0.001, tr.PnL, 1e-9)
	assert.InDelta(t, (exit-entry)/entry*100, tr.PnLPct, 1e-9)
	assert.InDelta(t, 10000-entry*1.001+exit*0.999, res.FinalState.Cash, 1e-9)
}

func TestRun_RebalanceAppliedNextDay(t *testing.T) {
	params := testParams()
	params.Safe.BuyLimitPct = -5
	params.Safe.TierWeights = []float64{50}
	params.Rebalance = domain.RebalanceParams{ProfitAddPct: 50, LossSubPct: 50}

	// day 1 buys 52 @ 94, day 2 exits @ 105 (+572), then flat until past day 10
	closes := append([]float64{100, 94}, flat(10, 105)...)
	res, err := Run(makeBars(closes...), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 11)

	require.Len(t, res.ClosedTrades, 1)
	assert.InDelta(t, 572.0, res.ClosedTrades[0].PnL, 1e-9)

	assert.Equal(t, 10000.0, res.Ledger[9].SeedCapital, "cycle day 10 keeps the old seed")
	assert.InDelta(t, 10286.0, res.Ledger[10].SeedCapital, 1e-9)
	assert.InDelta(t, 286.0, res.Ledger[10].CapitalRefresh, 1e-9)
	assert.Equal(t, 1, res.FinalState.RebalanceDay)
	assert.False(t, res.FinalState.HasPendingRebal)
}

func TestRun_LossRebalanceShrinksSeed(t *testing.T) {
	params := testParams()
	params.Safe.HoldingDayLimit = 1
	params.Safe.BuyLimitPct = -5
	params.Safe.TierWeights = []float64{50}
	params.Rebalance = domain.RebalanceParams{ProfitAddPct: 0, LossSubPct: 10}

	// buy 52 @ 94, forced out next day @ 90 (-208)
	closes := append([]float64{100, 94, 90}, flat(8, 90)...)
	res, err := Run(makeBars(closes...), nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 10)

	assert.True(t, res.FinalState.HasPendingRebal)
	assert.InDelta(t, -20.8, res.FinalState.PendingRebalance, 1e-9)
	assert.Equal(t, 0, res.FinalState.RebalanceDay)
}

func TestRun_Injections(t *testing.T) {
	params := testParams()
	params.Safe.BuyLimitPct = -50 // never buys

	bars := makeBars(100, 100, 100, 100)
	injections := []domain.InjectionEvent{
		{Date: bars[1].Date, Amount: 1000, Kind: domain.InjectionCash},
		{Date: bars[2].Date, Amount: 500, Kind: domain.InjectionSeedCapital},
	}

	res, err := Run(bars, nil, params, injections)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 3)

	assert.Equal(t, 11000.0, res.Ledger[0].Cash)
	assert.Equal(t, 11000.0, res.Ledger[0].SeedCapital)
	assert.Equal(t, 1000.0, res.Ledger[0].CapitalRefresh)

	assert.Equal(t, 11000.0, res.Ledger[1].Cash)
	assert.Equal(t, 11500.0, res.Ledger[1].SeedCapital)
	assert.Equal(t, 11000.0, res.FinalEquity)
}

func TestRun_DateWindow(t *testing.T) {
	bars := makeBars(flat(20, 100)...)
	params := testParams()
	params.StartDate = bars[5].Date
	params.EndDate = bars[9].Date

	res, err := Run(bars, nil, params, nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 5)
	assert.Equal(t, bars[5].Date, res.Ledger[0].Date)
	assert.Equal(t, bars[9].Date, res.FinalState.LastDate)
}

func TestRun_SkipsDayAfterInvalidBar(t *testing.T) {
	bars := makeBars(100, 0, 100, 100)

	res, err := Run(bars, nil, testParams(), nil)
	require.NoError(t, err)
	// bar 1 has no valid close, bar 2 has no valid prior close
	require.Len(t, res.Ledger, 1)
	assert.Equal(t, bars[3].Date, res.Ledger[0].Date)
}

func TestRun_SkipsNonFiniteCloses(t *testing.T) {
	tests := []struct {
		name  string
		close float64
	}{
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars, stats := normalization.Normalize(makeBars(100, 99, tt.close, 100, 100))
			require.Len(t, bars, 5)
			require.Equal(t, 1, stats.Invalid)

			var res *domain.SimulationResult
			require.NotPanics(t, func() {
				var err error
				res, err = Run(bars, nil, testParams(), nil)
				require.NoError(t, err)
			})
			// day 2 has no usable close, day 3 no usable prior close
			require.Len(t, res.Ledger, 2)
			assert.Equal(t, bars[1].Date, res.Ledger[0].Date)
			assert.Equal(t, bars[4].Date, res.Ledger[1].Date)
			for _, d := range res.DailyLog {
				assert.False(t, math.IsNaN(d.TotalAsset))
			}
		})
	}
}

func TestRun_ClosesRoundedToCents(t *testing.T) {
	res, err := Run(makeBars(100.004, 99.996), nil, testParams(), nil)
	require.NoError(t, err)
	require.Len(t, res.Ledger, 1)
	assert.Equal(t, 100.0, res.Ledger[0].Close)
	assert.Equal(t, 100.0, res.Ledger[0].TriggerPrice)
}

func TestRun_TotalAssetInvariant(t *testing.T) {
	closes := make([]float64, 300)
	price := 50.0
	for i := range closes {
		// deterministic saw-tooth random walk
		price *= 1 + 0.03*math.Sin(float64(i)*0.7) + 0.01*math.Cos(float64(i)*1.9)
		closes[i] = price
	}

	params := testParams()
	params.FeeRatePct = 0.07
	params.TierMode = domain.TierModeRealTier
	params.Safe = domain.RegimeParams{BuyLimitPct: 1, TargetPct: 3, HoldingDayLimit: 7, TierWeights: []float64{10, 15, 20, 25, 30}}
	params.Rebalance = domain.RebalanceParams{ProfitAddPct: 20, LossSubPct: 30}

	res, err := Run(makeBars(closes...), nil, params, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.ClosedTrades)

	for i, row := range res.Ledger {
		assert.Equal(t, row.TotalAsset, res.DailyLog[i].TotalAsset)
		assert.LessOrEqual(t, row.Drawdown, 0.0)
	}

	last := res.Ledger[len(res.Ledger)-1]
	holdings := 0.0
	for _, pos := range res.FinalState.Positions {
		holdings += float64(pos.Quantity) * last.Close
		assert.Equal(t, domain.Round2(res.Ledger[pos.LedgerRowID].TargetSellPrice), domain.Round2(pos.TargetSellPrice))
	}
	assert.InDelta(t, res.FinalState.Cash+holdings, res.FinalEquity, 1e-6)

	sold := 0
	for _, row := range res.Ledger {
		if row.Sold {
			sold++
			assert.True(t, row.Bought)
			assert.True(t, row.SellDate.After(row.Date))
		}
	}
	assert.Equal(t, len(res.ClosedTrades), sold)
}

func TestRun_Deterministic(t *testing.T) {
	closes := []float64{100, 98, 97, 101, 99, 95, 104, 108, 100, 96, 97, 99}
	a, err := Run(makeBars(closes...), nil, testParams(), nil)
	require.NoError(t, err)
	b, err := Run(makeBars(closes...), nil, testParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *domain.SimulationParams)
	}{
		{"zero capital", func(p *domain.SimulationParams) { p.InitialCapital = 0 }},
		{"end before start", func(p *domain.SimulationParams) { p.EndDate = p.StartDate.AddDate(0, 0, -1) }},
		{"negative fee", func(p *domain.SimulationParams) { p.FeeRatePct = -1 }},
		{"unknown tier mode", func(p *domain.SimulationParams) { p.TierMode = "ladder" }},
		{"empty safe weights", func(p *domain.SimulationParams) { p.Safe.TierWeights = nil }},
		{"negative offensive weight", func(p *domain.SimulationParams) { p.Offensive.TierWeights = []float64{-1} }},
		{"zero holding limit", func(p *domain.SimulationParams) { p.Offensive.HoldingDayLimit = 0 }},
		{"negative rebalance", func(p *domain.SimulationParams) { p.Rebalance.LossSubPct = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)

			_, err := Run(makeBars(100, 100), nil, p, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParams))
		})
	}

	assert.NoError(t, Validate(testParams()))
}
