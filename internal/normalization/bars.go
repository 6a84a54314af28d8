package normalization

import (
	"errors"
	"fmt"
	"math"

	"regime-tier-lab/internal/domain"
)

var (
	// ErrUnordered is returned when a series is not strictly ascending by date.
	ErrUnordered = errors.New("price series not strictly ascending by date")
	// ErrNoBars is returned when a series has no usable bars.
	ErrNoBars = errors.New("no price bars")
)

// Stats describes what Normalize changed.
type Stats struct {
	Input      int `json:"input"`
	Output     int `json:"output"`
	Duplicates int `json:"duplicates"` // same-day bars replaced by a later one
	Invalid    int `json:"invalid"`    // kept bars with a non-positive or non-finite close
	Filled     int `json:"filled"`     // bars whose missing OHLC fields were filled from close
}

// Normalize returns a copy of bars truncated to calendar days, sorted by date
// ASC with one bar per day.
//
// Aggregation for same date:
//   - LAST bar by input order wins
//
// Bars with an unusable close are kept in place; the engine skips those days.
// Missing open/high/low fields are filled from the close.
func Normalize(bars []domain.PriceBar) ([]domain.PriceBar, Stats) {
	stats := Stats{Input: len(bars)}
	if len(bars) == 0 {
		return nil, stats
	}

	sorted := make([]domain.PriceBar, len(bars))
	copy(sorted, bars)
	for i := range sorted {
		sorted[i].Date = domain.Day(sorted[i].Date)
	}
	SortBars(sorted)

	result := make([]domain.PriceBar, 0, len(sorted))
	for _, b := range sorted {
		if n := len(result); n > 0 && result[n-1].Date.Equal(b.Date) {
			result[n-1] = b
			stats.Duplicates++
			continue
		}
		result = append(result, b)
	}

	for i := range result {
		b := &result[i]
		if !usable(b.Close) {
			stats.Invalid++
			continue
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 {
			stats.Filled++
			if b.Open <= 0 {
				b.Open = b.Close
			}
			if b.High <= 0 {
				b.High = math.Max(b.Open, b.Close)
			}
			if b.Low <= 0 {
				b.Low = math.Min(b.Open, b.Close)
			}
		}
	}

	stats.Output = len(result)
	return result, stats
}

// CheckOrdered verifies bars are strictly ascending by calendar day.
func CheckOrdered(bars []domain.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if compareBars(bars[i-1], bars[i]) >= 0 {
			return fmt.Errorf("%w: %s then %s", ErrUnordered,
				bars[i-1].Date.Format(domain.DateLayout), bars[i].Date.Format(domain.DateLayout))
		}
	}
	return nil
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
