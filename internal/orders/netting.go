package orders

import (
	"sort"

	"regime-tier-lab/internal/domain"
)

// Net collapses the sheet's buy and sell intents into an equivalent minimal
// order set, sorted by price descending (market-on-close last).
//
// When the buy trigger is below every limit sell the orders are independent.
// Otherwise forced-sell quantity is netted against the buy first, colliding
// limit sells (price <= trigger) are crossed ascending at price-0.01, any
// residual buy stays at the trigger, and sell quantity the crosses no longer
// cover above the trigger is re-issued as a limit sell at trigger+0.01.
func Net(sheet *Sheet) []Order {
	buy := sheet.Buy

	var mocQty int64
	var mocs, locs []Order
	for _, s := range sheet.Sells {
		switch s.Type {
		case TypeMOC:
			mocs = append(mocs, s)
			mocQty += s.Quantity
		default:
			locs = append(locs, s)
		}
	}
	sort.SliceStable(locs, func(i, j int) bool { return locs[i].Price < locs[j].Price })

	var out []Order

	if len(locs) == 0 || buy.Price < locs[0].Price {
		if buy.Quantity > 0 {
			out = append(out, buy)
		}
		for _, s := range mocs {
			if s.Quantity > 0 {
				out = append(out, s)
			}
		}
		for _, s := range locs {
			if s.Quantity > 0 {
				out = append(out, s)
			}
		}
		return sortByPriceDesc(out)
	}

	target := buy.Quantity - mocQty
	if target < 0 {
		// forced sells exceed the buy: the excess still leaves at market
		out = append(out, Order{Side: SideSell, Type: TypeMOC, Quantity: -target})
		target = 0
	}

	var collidingQty int64
	for _, s := range locs {
		if s.Quantity == 0 {
			continue
		}
		if s.Price > buy.Price {
			out = append(out, s)
			continue
		}

		collidingQty += s.Quantity
		crossed := min(s.Quantity, target)
		if crossed > 0 {
			out = append(out, Order{
				Side:     SideBuy,
				Type:     TypeLOC,
				Price:    domain.Round2(s.Price - 0.01),
				Quantity: crossed,
				Tier:     buy.Tier,
			})
			target -= crossed
		}
		if rest := s.Quantity - crossed; rest > 0 {
			out = append(out, Order{Side: SideSell, Type: TypeLOC, Price: s.Price, Quantity: rest, Tier: s.Tier})
		}
	}

	if target > 0 {
		out = append(out, Order{Side: SideBuy, Type: TypeLOC, Price: buy.Price, Quantity: target, Tier: buy.Tier})
	}

	var covered int64
	for _, o := range out {
		if o.Side == SideSell && o.Price <= buy.Price {
			covered += o.Quantity
		}
	}
	if needed := mocQty + collidingQty - covered; needed > 0 {
		out = append(out, Order{
			Side:     SideSell,
			Type:     TypeLOC,
			Price:    domain.Round2(buy.Price + 0.01),
			Quantity: needed,
		})
	}

	return sortByPriceDesc(out)
}

// sortByPriceDesc orders by price descending, keeping insertion order on ties.
func sortByPriceDesc(orders []Order) []Order {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Price > orders[j].Price })
	return orders
}
