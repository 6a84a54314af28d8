// Package orders turns a simulation's final state into the next session's
// order sheet and nets overlapping buy and sell levels into a minimal set.
package orders

import (
	"errors"
	"fmt"
	"math"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/simulation"
)

// ErrEmptyState is returned when the final state has no simulated day.
var ErrEmptyState = errors.New("final state has no simulated day")

// Side is the order direction.
type Side string

// Side constants.
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type is the order execution type.
type Type string

// Type constants.
const (
	TypeLOC Type = "LOC" // limit-on-close
	TypeMOC Type = "MOC" // market-on-close, Price is 0
)

// Order is one next-session order intent.
type Order struct {
	Side     Side    `json:"side"`
	Type     Type    `json:"type"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Tier     int     `json:"tier,omitempty"` // originating position tier for sells, buy tier for buys
}

func (o Order) String() string {
	if o.Type == TypeMOC {
		return fmt.Sprintf("%s %s %d", o.Type, o.Side, o.Quantity)
	}
	return fmt.Sprintf("%s %s %d @ %.2f", o.Type, o.Side, o.Quantity, o.Price)
}

// Sheet is the raw order sheet for the session after the last simulated day.
type Sheet struct {
	SessionDate      time.Time       `json:"sessionDate"`
	LastDate         time.Time       `json:"lastDate"`
	LastClose        float64         `json:"lastClose"`
	Regime           domain.Regime   `json:"regime"`
	TierMode         domain.TierMode `json:"tierMode"`
	Allocation       float64         `json:"allocation"`
	Buy              Order           `json:"buy"`
	Sells            []Order         `json:"sells"`
	PendingRebalance float64         `json:"pendingRebalance"`
	RebalanceDate    time.Time       `json:"rebalanceDate"` // first session whose seed includes the next rebalance
}

// GenerateSheet derives buy and sell intents from a final state.
// The last close stands in for the unknown next close.
func GenerateSheet(state domain.FinalState, params domain.SimulationParams) (*Sheet, error) {
	if err := simulation.Validate(params); err != nil {
		return nil, err
	}
	if state.LastDate.IsZero() || state.LastClose <= 0 || math.IsNaN(state.LastClose) || math.IsInf(state.LastClose, 0) {
		return nil, ErrEmptyState
	}

	rp := params.ForRegime(state.Regime)
	tier := len(state.Positions) + 1
	trigger := domain.Round2(state.LastClose * (1 + rp.BuyLimitPct/100))

	seed := state.SeedCapital
	if state.HasPendingRebal {
		seed += state.PendingRebalance
	}
	allocation := seed * rp.Weight(tier) / 100

	var qty int64
	if allocation > 0 && trigger > 0 {
		qty = int64(math.Floor(allocation / trigger))
		qty = capToCash(qty, trigger, state.Cash, params.FeeRatePct/100)
	}

	tierMode := params.TierMode
	if tierMode == "" {
		tierMode = domain.TierModeSequential
	}

	sheet := &Sheet{
		SessionDate: NextBusinessDay(state.LastDate),
		LastDate:    state.LastDate,
		LastClose:   state.LastClose,
		Regime:      state.Regime,
		TierMode:    tierMode,
		Allocation:  allocation,
		Buy: Order{
			Side:     SideBuy,
			Type:     TypeLOC,
			Price:    trigger,
			Quantity: qty,
			Tier:     tier,
		},
		Sells: make([]Order, 0, len(state.Positions)),
	}

	for i, pos := range state.Positions {
		sheet.Sells = append(sheet.Sells, Order{
			Side:     SideSell,
			Type:     TypeLOC,
			Price:    domain.Round2(pos.TargetSellPrice),
			Quantity: pos.Quantity,
			Tier:     i + 1,
		})
		if pos.DaysHeld+1 >= pos.HoldingDayLimit {
			sheet.Sells = append(sheet.Sells, Order{
				Side:     SideSell,
				Type:     TypeMOC,
				Quantity: pos.Quantity,
				Tier:     i + 1,
			})
		}
	}

	if state.HasPendingRebal {
		sheet.PendingRebalance = state.PendingRebalance
		sheet.RebalanceDate = sheet.SessionDate
	} else {
		// the cycle closes after the remaining sessions, and applies one session later
		remaining := simulation.RebalanceCycleDays - state.RebalanceDay
		sheet.RebalanceDate = AddBusinessDays(state.LastDate, remaining+1)
	}

	return sheet, nil
}

// capToCash reduces want to what cash covers at price, fee leg included.
func capToCash(want int64, price, cash, feeRate float64) int64 {
	cost := float64(want) * price
	if cash >= cost*(1+feeRate) {
		return want
	}
	maxQty := math.Floor(cash / (price * (1 + feeRate)))
	if maxQty <= 0 {
		return 0
	}
	return int64(maxQty)
}
