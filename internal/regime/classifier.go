package regime

import (
	"time"

	"regime-tier-lab/internal/domain"
)

// Week is one classified reference week.
type Week struct {
	Bar    domain.WeeklyBar
	RSI    float64
	HasRSI bool
	Regime domain.Regime
}

// Classifier holds weekly regimes of a reference series and answers
// daily mode lookups with a one-week lag.
type Classifier struct {
	weeks []Week
	index map[string]int // week key -> position in weeks
}

// NewClassifier aggregates the reference series and classifies every week.
func NewClassifier(reference []domain.PriceBar) *Classifier {
	weekly := AggregateWeekly(reference)
	return NewClassifierFromWeekly(weekly)
}

// NewClassifierFromWeekly classifies pre-aggregated weekly bars.
func NewClassifierFromWeekly(weekly []domain.WeeklyBar) *Classifier {
	rsi, ok := ComputeRSI(Closes(weekly), RSIPeriod)

	c := &Classifier{
		weeks: make([]Week, len(weekly)),
		index: make(map[string]int, len(weekly)),
	}

	state := InitialState()
	for i, w := range weekly {
		state = Step(state, rsi[i], ok[i])
		c.weeks[i] = Week{Bar: w, RSI: rsi[i], HasRSI: ok[i], Regime: state.Regime}
		c.index[w.Key] = i
	}

	return c
}

// Weeks returns the classified weeks in order.
func (c *Classifier) Weeks() []Week {
	return c.weeks
}

// Regimes returns the per-week regime sequence.
func (c *Classifier) Regimes() []domain.Regime {
	out := make([]domain.Regime, len(c.weeks))
	for i, w := range c.weeks {
		out[i] = w.Regime
	}
	return out
}

// ModeFor returns the effective regime for a trading day: the regime decided
// for the week before the day's ISO week. The first week and weeks missing
// from the reference series resolve to Safe.
func (c *Classifier) ModeFor(day time.Time) domain.Regime {
	idx, ok := c.index[domain.WeekKey(day)]
	if !ok || idx == 0 {
		return domain.RegimeSafe
	}
	return c.weeks[idx-1].Regime
}
