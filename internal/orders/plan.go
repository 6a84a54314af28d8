package orders

import (
	"sort"
	"time"

	"regime-tier-lab/internal/domain"
)

// Status tells how a plan was produced.
type Status string

// Status constants.
const (
	StatusNetted    Status = "NETTED"     // orders are the netting result
	StatusSellsOnly Status = "SELLS_ONLY" // no buy this session, active sells only
	StatusNoOrders  Status = "NO_ORDERS"  // nothing to place this session
)

// Adjustment is the outcome of AdjustTarget.
type Adjustment struct {
	Status        Status
	Sheet         *Sheet  // copy with the possibly clamped buy; nil unless Status is StatusNetted
	Sells         []Order // active sells when Status is StatusSellsOnly
	Adjusted      bool
	OriginalPrice float64
}

// AdjustTarget clamps the buy trigger just under the nearest colliding limit
// sell: the second-lowest for Offensive, the lowest for Safe. Offensive with
// fewer than two limit sells degrades to its active sells, or no orders;
// Safe without a limit sell yields no orders. The input sheet is not modified.
func AdjustTarget(sheet *Sheet) Adjustment {
	var locs []Order
	for _, s := range sheet.Sells {
		if s.Type == TypeLOC {
			locs = append(locs, s)
		}
	}
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].Price < locs[j].Price })

	adj := Adjustment{OriginalPrice: sheet.Buy.Price}

	var anchor float64
	switch sheet.Regime {
	case domain.RegimeOffensive:
		if len(locs) < 2 {
			active := activeSells(sheet.Sells)
			if len(active) == 0 {
				adj.Status = StatusNoOrders
				return adj
			}
			adj.Status = StatusSellsOnly
			adj.Sells = sortByPriceDesc(active)
			return adj
		}
		anchor = locs[1].Price
	default:
		if len(locs) < 1 {
			adj.Status = StatusNoOrders
			return adj
		}
		anchor = locs[0].Price
	}

	adjusted := *sheet
	adjusted.Sells = append([]Order(nil), sheet.Sells...)
	if sheet.Buy.Price >= anchor {
		adjusted.Buy.Price = domain.Round2(anchor - 0.01)
		adj.Adjusted = true
	}

	adj.Status = StatusNetted
	adj.Sheet = &adjusted
	return adj
}

func activeSells(sells []Order) []Order {
	var out []Order
	for _, s := range sells {
		if s.Quantity > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Plan is the resolved order list for the next session.
type Plan struct {
	SessionDate   time.Time     `json:"sessionDate"`
	Regime        domain.Regime `json:"regime"`
	Status        Status        `json:"status"`
	Adjusted      bool          `json:"adjusted"`
	OriginalPrice float64       `json:"originalBuyPrice"`
	BuyPrice      float64       `json:"buyPrice"`
	Orders        []Order       `json:"orders"`
}

// Resolve runs the adjust-target pass under realTier sizing, then nets.
func Resolve(sheet *Sheet) *Plan {
	plan := &Plan{
		SessionDate:   sheet.SessionDate,
		Regime:        sheet.Regime,
		OriginalPrice: sheet.Buy.Price,
		BuyPrice:      sheet.Buy.Price,
	}

	if sheet.TierMode != domain.TierModeRealTier {
		plan.Status = StatusNetted
		plan.Orders = Net(sheet)
		return plan
	}

	adj := AdjustTarget(sheet)
	plan.Status = adj.Status
	switch adj.Status {
	case StatusNoOrders:
		plan.Orders = []Order{}
	case StatusSellsOnly:
		plan.Orders = adj.Sells
	default:
		plan.Adjusted = adj.Adjusted
		plan.BuyPrice = adj.Sheet.Buy.Price
		plan.Orders = Net(adj.Sheet)
	}
	return plan
}
