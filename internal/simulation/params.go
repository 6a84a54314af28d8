// Package simulation runs the day-by-day tiered regime strategy over a daily
// price series and produces the ledger, equity log and final state.
package simulation

import (
	"errors"
	"fmt"
	"math"

	"regime-tier-lab/internal/domain"
)

// ErrInvalidParams is returned when simulation parameters fail validation.
var ErrInvalidParams = errors.New("invalid simulation params")

// Validate checks params before any simulation work starts.
func Validate(p domain.SimulationParams) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"initial capital", p.InitialCapital},
		{"fee rate", p.FeeRatePct},
		{"rebalance profit add", p.Rebalance.ProfitAddPct},
		{"rebalance loss sub", p.Rebalance.LossSubPct},
	} {
		if !finite(f.v) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParams, f.name, f.v)
		}
	}
	if p.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %v", ErrInvalidParams, p.InitialCapital)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end date are required", ErrInvalidParams)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date %s before start date %s", ErrInvalidParams,
			p.EndDate.Format(domain.DateLayout), p.StartDate.Format(domain.DateLayout))
	}
	if p.FeeRatePct < 0 || p.FeeRatePct >= 100 {
		return fmt.Errorf("%w: fee rate must be in [0, 100), got %v", ErrInvalidParams, p.FeeRatePct)
	}
	switch p.TierMode {
	case "", domain.TierModeSequential, domain.TierModeRealTier:
	default:
		return fmt.Errorf("%w: unknown tier mode %q", ErrInvalidParams, p.TierMode)
	}
	if err := validateRegime("safe", p.Safe); err != nil {
		return err
	}
	if err := validateRegime("offensive", p.Offensive); err != nil {
		return err
	}
	if p.Rebalance.ProfitAddPct < 0 || p.Rebalance.LossSubPct < 0 {
		return fmt.Errorf("%w: rebalance percents must be non-negative", ErrInvalidParams)
	}
	return nil
}

func validateRegime(name string, r domain.RegimeParams) error {
	if len(r.TierWeights) == 0 {
		return fmt.Errorf("%w: %s tier weights are empty", ErrInvalidParams, name)
	}
	if !finite(r.BuyLimitPct) || !finite(r.TargetPct) {
		return fmt.Errorf("%w: %s buy limit and target must be finite", ErrInvalidParams, name)
	}
	for i, w := range r.TierWeights {
		if !finite(w) {
			return fmt.Errorf("%w: %s tier %d weight must be finite", ErrInvalidParams, name, i+1)
		}
		if w < 0 {
			return fmt.Errorf("%w: %s tier %d weight is negative", ErrInvalidParams, name, i+1)
		}
	}
	if r.BuyLimitPct <= -100 {
		return fmt.Errorf("%w: %s buy limit must be above -100%%, got %v", ErrInvalidParams, name, r.BuyLimitPct)
	}
	if r.TargetPct <= -100 {
		return fmt.Errorf("%w: %s target must be above -100%%, got %v", ErrInvalidParams, name, r.TargetPct)
	}
	if r.HoldingDayLimit < 1 {
		return fmt.Errorf("%w: %s holding day limit must be at least 1, got %d", ErrInvalidParams, name, r.HoldingDayLimit)
	}
	return nil
}

// ValidateInjections checks that every injection has a known kind and a finite amount.
func ValidateInjections(injections []domain.InjectionEvent) error {
	for i, inj := range injections {
		switch inj.Kind {
		case domain.InjectionCash, domain.InjectionSeedCapital:
		default:
			return fmt.Errorf("%w: injection %d has unknown kind %q", ErrInvalidParams, i, inj.Kind)
		}
		if inj.Date.IsZero() {
			return fmt.Errorf("%w: injection %d has no date", ErrInvalidParams, i)
		}
		if !finite(inj.Amount) {
			return fmt.Errorf("%w: injection %d amount must be finite, got %v", ErrInvalidParams, i, inj.Amount)
		}
	}
	return nil
}

// usableClose reports whether a close can be priced: positive and finite.
func usableClose(v float64) bool {
	return v > 0 && finite(v)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
