// Package regime classifies weekly Safe/Offensive trading modes from a
// reference price series.
package regime

import (
	"math"

	"regime-tier-lab/internal/domain"
)

// AggregateWeekly buckets daily bars by ISO week.
// Bars must be ordered by date ASC. Weekly close is the last daily close.
func AggregateWeekly(bars []domain.PriceBar) []domain.WeeklyBar {
	weekly := make([]domain.WeeklyBar, 0, len(bars)/5+1)

	for _, bar := range bars {
		key := domain.WeekKey(bar.Date)
		n := len(weekly)
		if n == 0 || weekly[n-1].Key != key {
			weekly = append(weekly, domain.WeeklyBar{
				Key:    key,
				Start:  bar.Date,
				End:    bar.Date,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
				Close:  bar.Close,
				Volume: bar.Volume,
			})
			continue
		}

		w := &weekly[n-1]
		w.End = bar.Date
		w.High = math.Max(w.High, bar.High)
		w.Low = math.Min(w.Low, bar.Low)
		w.Close = bar.Close
		w.Volume += bar.Volume
	}

	return weekly
}

// Closes extracts weekly closes in order.
func Closes(weekly []domain.WeeklyBar) []float64 {
	closes := make([]float64, len(weekly))
	for i, w := range weekly {
		closes[i] = w.Close
	}
	return closes
}
