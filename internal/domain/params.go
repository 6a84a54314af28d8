package domain

import "time"

// RegimeParams holds the per-regime trading rules.
type RegimeParams struct {
	BuyLimitPct     float64   `yaml:"buy_limit_pct" json:"buyLimitPct"`         // trigger = prev close * (1 + pct/100)
	TargetPct       float64   `yaml:"target_pct" json:"targetPct"`              // target = entry close * (1 + pct/100)
	HoldingDayLimit int       `yaml:"holding_day_limit" json:"holdingDayLimit"` // forced exit after N held days
	TierWeights     []float64 `yaml:"tier_weights" json:"tierWeights"`          // % of seed per tier, 1-based
}

// Weight returns the allocation weight (%) for a 1-based tier.
// Tiers beyond the configured weights get 0.
func (p RegimeParams) Weight(tier int) float64 {
	if tier < 1 || tier > len(p.TierWeights) {
		return 0
	}
	return p.TierWeights[tier-1]
}

// RebalanceParams controls the 10-day seed adjustment.
type RebalanceParams struct {
	ProfitAddPct float64 `yaml:"profit_add_pct" json:"profitAddPct"`
	LossSubPct   float64 `yaml:"loss_sub_pct" json:"lossSubPct"`
}

// SimulationParams is the full parameter set of one simulation run.
type SimulationParams struct {
	InitialCapital float64         `json:"initialCapital"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        time.Time       `json:"endDate"`
	FeeRatePct     float64         `json:"feeRatePct"`
	TierMode       TierMode        `json:"tierMode"`
	Safe           RegimeParams    `json:"safe"`
	Offensive      RegimeParams    `json:"offensive"`
	Rebalance      RebalanceParams `json:"rebalance"`
}

// ForRegime returns the rules for a regime.
func (p *SimulationParams) ForRegime(r Regime) RegimeParams {
	if r == RegimeOffensive {
		return p.Offensive
	}
	return p.Safe
}

// Clone returns a deep copy, including tier weight slices.
func (p SimulationParams) Clone() SimulationParams {
	c := p
	c.Safe.TierWeights = append([]float64(nil), p.Safe.TierWeights...)
	c.Offensive.TierWeights = append([]float64(nil), p.Offensive.TierWeights...)
	return c
}

// InjectionKind selects what an injection adds to.
type InjectionKind string

// Injection kind constants.
const (
	// InjectionCash deposits money: cash and seed capital both grow.
	InjectionCash InjectionKind = "cash"
	// InjectionSeedCapital resizes the seed capital only.
	InjectionSeedCapital InjectionKind = "seedCapital"
)

// InjectionEvent is an exogenous capital change applied at the start of a day.
type InjectionEvent struct {
	Date   time.Time     `json:"date"`
	Amount float64       `json:"amount"` // negative amounts withdraw
	Kind   InjectionKind `json:"kind"`
}
