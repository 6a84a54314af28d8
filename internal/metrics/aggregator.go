package metrics

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// TradeStats summarizes the persisted trades of one run.
type TradeStats struct {
	RunID                string
	Trades               int
	Wins                 int
	Losses               int
	WinRate              float64 // %
	TradeQuality         float64
	ProfitFactor         float64
	MeanReturnPct        float64
	MedianReturnPct      float64
	ReturnP10            float64
	ReturnP90            float64
	TotalPnL             float64
	TotalFees            float64
	MaxConsecutiveLosses int
	ByExitKind           map[domain.ExitKind]int
}

// Aggregator computes trade statistics from stored trade records.
type Aggregator struct {
	tradeStore storage.TradeRecordStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeRecordStore) *Aggregator {
	return &Aggregator{tradeStore: tradeStore}
}

// ComputeForRun loads a run's trades and computes its statistics.
// Zero-quantity records are ignored. Returns ErrNoTrades if none remain.
func (a *Aggregator) ComputeForRun(ctx context.Context, runID string) (*TradeStats, error) {
	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}

	filled := make([]*domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		if t.Quantity > 0 {
			filled = append(filled, t)
		}
	}
	if len(filled) == 0 {
		return nil, ErrNoTrades
	}

	stats := computeFromTrades(filled)
	stats.RunID = runID
	return stats, nil
}

// computeFromTrades calculates statistics over trades sorted by
// ExitDate ASC, TradeID ASC.
func computeFromTrades(trades []*domain.TradeRecord) *TradeStats {
	sorted := make([]*domain.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ExitDate.Equal(sorted[j].ExitDate) {
			return sorted[i].ExitDate.Before(sorted[j].ExitDate)
		}
		return sorted[i].TradeID < sorted[j].TradeID
	})

	n := len(sorted)
	returns := make([]float64, n)
	pnls := make([]float64, n)
	stats := &TradeStats{
		Trades:     n,
		ByExitKind: make(map[domain.ExitKind]int),
	}

	streak := 0
	for i, t := range sorted {
		returns[i] = t.PnLPct
		pnls[i] = t.PnL
		stats.TotalPnL += t.PnL
		stats.TotalFees += t.Fees
		stats.ByExitKind[t.ExitKind]++

		if t.PnL > 0 {
			stats.Wins++
			streak = 0
			continue
		}
		stats.Losses++
		streak++
		if streak > stats.MaxConsecutiveLosses {
			stats.MaxConsecutiveLosses = streak
		}
	}

	ordered := sortedCopy(returns)
	stats.WinRate = WinRate(pnls)
	stats.TradeQuality = TradeQualityScore(returns)
	stats.ProfitFactor = ProfitFactor(pnls)
	stats.MeanReturnPct = Mean(returns)
	stats.MedianReturnPct = Percentile(ordered, 0.50)
	stats.ReturnP10 = Percentile(ordered, 0.10)
	stats.ReturnP90 = Percentile(ordered, 0.90)

	return stats
}
