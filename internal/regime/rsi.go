package regime

import (
	"github.com/markcheno/go-talib"
)

// RSIPeriod is the weekly RSI lookback.
const RSIPeriod = 14

// ComputeRSI returns a simple-average (Cutler) RSI per close.
// ok[i] is false for the first period indexes where RSI is undefined.
// A window with no losses yields 100.
func ComputeRSI(closes []float64, period int) (rsi []float64, ok []bool) {
	n := len(closes)
	rsi = make([]float64, n)
	ok = make([]bool, n)
	if period < 1 || n <= period {
		return rsi, ok
	}

	// gains[i]/losses[i] hold the move from closes[i-1] to closes[i]; index 0 is unused.
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains[i] = diff
		} else {
			losses[i] = -diff
		}
	}

	avgGain := talib.Sma(gains, period)
	avgLoss := talib.Sma(losses, period)

	for i := period; i < n; i++ {
		ok[i] = true
		if avgLoss[i] == 0 {
			rsi[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		rsi[i] = 100 - 100/(1+rs)
	}

	return rsi, ok
}
