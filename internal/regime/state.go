package regime

import "regime-tier-lab/internal/domain"

// Hysteresis thresholds.
const (
	overboughtFall = 65.0
	midline        = 50.0
	safeBandLow    = 40.0
	bullBandHigh   = 70.0
	oversoldRise   = 35.0
)

// State is the hysteresis state carried from one week to the next.
type State struct {
	Regime  domain.Regime
	LastRSI float64
	HasRSI  bool // LastRSI is defined
}

// InitialState is the state before the first week: Safe, no RSI.
func InitialState() State {
	return State{Regime: domain.RegimeSafe}
}

// Step applies one week's RSI to the state.
// When either this week's or last week's RSI is undefined the regime persists.
func Step(s State, rsi float64, ok bool) State {
	next := State{Regime: s.Regime, LastRSI: rsi, HasRSI: ok}
	if !ok || !s.HasRSI {
		return next
	}

	prev := s.LastRSI
	rising := rsi > prev
	falling := rsi < prev

	toSafe := (falling && prev >= overboughtFall) ||
		(falling && rsi > safeBandLow && rsi < midline) ||
		(prev >= midline && rsi < midline)

	toOffensive := (prev < midline && rsi >= midline) ||
		(rising && rsi >= midline && rsi < bullBandHigh) ||
		(rising && rsi < oversoldRise)

	switch {
	case toSafe:
		next.Regime = domain.RegimeSafe
	case toOffensive:
		next.Regime = domain.RegimeOffensive
	}
	return next
}
