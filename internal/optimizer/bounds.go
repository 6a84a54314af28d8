package optimizer

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBounds is returned for malformed search bounds or config.
var ErrInvalidBounds = errors.New("invalid optimizer bounds")

// Range is an inclusive float range.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// IntRange is an inclusive integer range.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// RegimeBounds bounds one regime's sampled rules.
type RegimeBounds struct {
	BuyLimitPct     Range    `yaml:"buy_limit_pct" json:"buyLimitPct"`
	TargetPct       Range    `yaml:"target_pct" json:"targetPct"`
	HoldingDayLimit IntRange `yaml:"holding_day_limit" json:"holdingDayLimit"`
}

// Bounds is the full search space.
type Bounds struct {
	Safe         RegimeBounds `yaml:"safe" json:"safe"`
	Offensive    RegimeBounds `yaml:"offensive" json:"offensive"`
	ProfitAddPct Range        `yaml:"profit_add_pct" json:"profitAddPct"`
	LossSubPct   Range        `yaml:"loss_sub_pct" json:"lossSubPct"`
}

// DefaultBounds returns a search space around the stock Safe/Offensive rules.
func DefaultBounds() Bounds {
	return Bounds{
		Safe: RegimeBounds{
			BuyLimitPct:     Range{Min: 0, Max: 5},
			TargetPct:       Range{Min: 0.1, Max: 3},
			HoldingDayLimit: IntRange{Min: 10, Max: 40},
		},
		Offensive: RegimeBounds{
			BuyLimitPct:     Range{Min: 0, Max: 8},
			TargetPct:       Range{Min: 1, Max: 5},
			HoldingDayLimit: IntRange{Min: 3, Max: 15},
		},
		ProfitAddPct: Range{Min: 0, Max: 100},
		LossSubPct:   Range{Min: 0, Max: 100},
	}
}

// Validate checks every range.
func (b Bounds) Validate() error {
	for _, rb := range []struct {
		name string
		b    RegimeBounds
	}{{"safe", b.Safe}, {"offensive", b.Offensive}} {
		if err := rb.b.BuyLimitPct.validate(rb.name+".buy_limit_pct", -100); err != nil {
			return err
		}
		if err := rb.b.TargetPct.validate(rb.name+".target_pct", -100); err != nil {
			return err
		}
		h := rb.b.HoldingDayLimit
		if h.Min < 1 || h.Max < h.Min {
			return fmt.Errorf("%w: %s.holding_day_limit [%d, %d]", ErrInvalidBounds, rb.name, h.Min, h.Max)
		}
	}
	if err := b.ProfitAddPct.validate("profit_add_pct", 0); err != nil {
		return err
	}
	return b.LossSubPct.validate("loss_sub_pct", 0)
}

// validate requires finite bounds, min <= max and min above floor
// (exclusive for negative floors, inclusive otherwise).
func (r Range) validate(name string, floor float64) error {
	for _, v := range []float64{r.Min, r.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s not finite", ErrInvalidBounds, name)
		}
	}
	if r.Max < r.Min {
		return fmt.Errorf("%w: %s min %v > max %v", ErrInvalidBounds, name, r.Min, r.Max)
	}
	if r.Min < floor || (floor < 0 && r.Min == floor) {
		return fmt.Errorf("%w: %s min %v below %v", ErrInvalidBounds, name, r.Min, floor)
	}
	return nil
}
