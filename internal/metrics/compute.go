// Package metrics holds the statistics shared by simulation reports and the
// analysis harnesses. Degenerate inputs resolve to 0, never NaN or Inf.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DaysPerYear converts calendar days to years for annualization.
const DaysPerYear = 365.0

// finite maps NaN and ±Inf to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return finite(stat.Mean(values, nil))
}

// meanStddev returns mean and sample standard deviation (n-1 denominator).
// Stddev is 0 with fewer than 2 samples.
func meanStddev(values []float64) (mean, stddev float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, stddev = stat.MeanStdDev(values, nil)
	return finite(mean), finite(stddev)
}

// AnnualizedReturn returns the compound annual growth rate in percent for a
// move from start to end over the given calendar days.
// Non-positive start or elapsed time yields 0; a wiped-out end yields -100.
func AnnualizedReturn(start, end, days float64) float64 {
	if start <= 0 || days <= 0 {
		return 0
	}
	if end <= 0 {
		return -100
	}
	years := days / DaysPerYear
	return finite((math.Pow(end/start, 1/years) - 1) * 100)
}

// TotalReturn returns (end - start) / start in percent.
func TotalReturn(start, end float64) float64 {
	if start == 0 {
		return 0
	}
	return finite((end - start) / start * 100)
}

// TradeQualityScore is mean / sample stddev of per-trade percentage returns
// scaled by sqrt(trade count). 0 with fewer than 2 trades or zero variance.
func TradeQualityScore(returnsPct []float64) float64 {
	n := len(returnsPct)
	if n < 2 {
		return 0
	}
	mean, stddev := meanStddev(returnsPct)
	if stddev == 0 {
		return 0
	}
	return finite(mean / stddev * math.Sqrt(float64(n)))
}

// WinRate returns the share of positive values in percent.
func WinRate(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	wins := 0
	for _, v := range values {
		if v > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(values)) * 100
}

// ProfitFactor returns gross profit / gross loss, 0 when there is no loss.
func ProfitFactor(pnls []float64) float64 {
	var grossProfit, grossLoss float64
	for _, p := range pnls {
		if p > 0 {
			grossProfit += p
		} else {
			grossLoss -= p
		}
	}
	if grossLoss == 0 {
		return 0
	}
	return finite(grossProfit / grossLoss)
}

// RSquared is the coefficient of determination of a least-squares line
// fitted to values against their index. 0 for fewer than 2 points or a
// flat series.
func RSquared(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	if floats.Max(values) == floats.Min(values) {
		return 0
	}

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	alpha, beta := stat.LinearRegression(xs, values, nil, false)
	return finite(stat.RSquared(xs, values, nil, alpha, beta))
}

// Percentile uses linear interpolation.
// sorted must be pre-sorted ASC. p is a fraction (0.05 = 5th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// MaxDrawdownPct returns the deepest (value - running peak) / peak in percent
// over an equity curve, and the index where it occurred (-1 if never below peak).
func MaxDrawdownPct(equity []float64) (float64, int) {
	peak := 0.0
	worst := 0.0
	at := -1

	for i, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (v - peak) / peak * 100
		if dd < worst {
			worst = dd
			at = i
		}
	}
	return worst, at
}

// UlcerIndex is the root mean square of drawdown percentages.
func UlcerIndex(drawdowns []float64) float64 {
	if len(drawdowns) == 0 {
		return 0
	}
	return finite(math.Sqrt(floats.Dot(drawdowns, drawdowns) / float64(len(drawdowns))))
}

// sortedCopy returns values sorted ASC without touching the input.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}
