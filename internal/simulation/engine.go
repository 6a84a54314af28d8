package simulation

import (
	"math"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/regime"
)

// RebalanceCycleDays is the number of simulated days per rebalance cycle.
const RebalanceCycleDays = 10

// Engine runs simulations against one regime reference series.
// An Engine holds no per-run state and is safe for concurrent use.
type Engine struct {
	classifier *regime.Classifier
}

// NewEngine classifies the reference series once for all runs.
func NewEngine(reference []domain.PriceBar) *Engine {
	return &Engine{classifier: regime.NewClassifier(reference)}
}

// NewEngineWithClassifier creates an engine over an existing classifier.
func NewEngineWithClassifier(c *regime.Classifier) *Engine {
	return &Engine{classifier: c}
}

// Classifier returns the regime classifier used by the engine.
func (e *Engine) Classifier() *regime.Classifier {
	return e.classifier
}

// Run is a convenience wrapper for a single simulation.
func Run(primary, reference []domain.PriceBar, params domain.SimulationParams, injections []domain.InjectionEvent) (*domain.SimulationResult, error) {
	return NewEngine(reference).Run(primary, params, injections)
}

// Run simulates params over the primary series.
// primary must be ordered by date ASC. The first bar only seeds the
// previous close; simulated days start at the second bar.
func (e *Engine) Run(primary []domain.PriceBar, params domain.SimulationParams, injections []domain.InjectionEvent) (*domain.SimulationResult, error) {
	if err := Validate(params); err != nil {
		return nil, err
	}
	if err := ValidateInjections(injections); err != nil {
		return nil, err
	}

	s := newRunState(params.Clone(), injections)

	for i := 1; i < len(primary); i++ {
		today, prev := primary[i], primary[i-1]

		day := domain.Day(today.Date)
		if day.Before(s.params.StartDate) {
			continue
		}
		if day.After(s.params.EndDate) {
			break
		}
		if !usableClose(prev.Close) || !usableClose(today.Close) {
			continue
		}

		s.step(day, domain.Round2(today.Close), domain.Round2(prev.Close), e.classifier.ModeFor(day))
	}

	return s.result(), nil
}

// runState is the mutable state of one simulation run.
type runState struct {
	params     domain.SimulationParams
	feeRate    float64
	injections map[time.Time][]domain.InjectionEvent

	seed      float64
	cash      float64
	positions []domain.Position

	ledger   []domain.LedgerRow
	daily    []domain.DailyLogEntry
	closed   []domain.ClosedTrade
	lifetime float64 // realized PnL since start

	periodPnL      float64
	rebalanceDay   int
	pending        float64
	hasPending     bool
	peak           float64
	maxDrawdown    domain.Drawdown
	lastRegime     domain.Regime
	lastClose      float64
	lastSimulation time.Time
}

func newRunState(params domain.SimulationParams, injections []domain.InjectionEvent) *runState {
	byDay := make(map[time.Time][]domain.InjectionEvent, len(injections))
	for _, inj := range injections {
		d := domain.Day(inj.Date)
		byDay[d] = append(byDay[d], inj)
	}

	params.StartDate = domain.Day(params.StartDate)
	params.EndDate = domain.Day(params.EndDate)
	if params.TierMode == "" {
		params.TierMode = domain.TierModeSequential
	}

	return &runState{
		params:     params,
		feeRate:    params.FeeRatePct / 100,
		injections: byDay,
		seed:       params.InitialCapital,
		cash:       params.InitialCapital,
		lastRegime: domain.RegimeSafe,
	}
}

// step simulates one trading day.
func (s *runState) step(day time.Time, close, prevClose float64, mode domain.Regime) {
	row := domain.LedgerRow{
		ID:        len(s.ledger),
		Date:      day,
		Close:     close,
		Regime:    mode,
		ChangePct: (close - prevClose) / prevClose * 100,
	}

	for _, inj := range s.injections[day] {
		switch inj.Kind {
		case domain.InjectionSeedCapital:
			s.seed += inj.Amount
		case domain.InjectionCash:
			s.seed += inj.Amount
			s.cash += inj.Amount
		}
		row.CapitalRefresh += inj.Amount
	}

	if s.hasPending {
		s.seed += s.pending
		row.CapitalRefresh += s.pending
		s.pending, s.hasPending = 0, false
	}

	openAtStart := len(s.positions)
	dayPnL := s.exitPositions(day, close)

	tier := len(s.positions) + 1
	if s.params.TierMode == domain.TierModeSequential {
		tier = openAtStart + 1
	}

	p := s.params.ForRegime(mode)
	trigger := prevClose * (1 + p.BuyLimitPct/100)
	row.Tier = tier
	row.TriggerPrice = domain.Round2(trigger)

	if close <= trigger {
		s.buy(&row, p, tier, trigger, close)
	}

	s.rebalanceDay++
	if s.rebalanceDay >= RebalanceCycleDays {
		s.pending = rebalanceAdjustment(s.periodPnL, s.params.Rebalance)
		s.hasPending = true
		s.periodPnL = 0
		s.rebalanceDay = 0
	}

	s.lifetime += dayPnL

	holdings := 0.0
	for _, pos := range s.positions {
		holdings += float64(pos.Quantity) * close
	}
	total := s.cash + holdings

	if total > s.peak {
		s.peak = total
	}
	drawdown := 0.0
	if s.peak > 0 {
		drawdown = (total - s.peak) / s.peak * 100
	}
	if drawdown < s.maxDrawdown.Value {
		s.maxDrawdown = domain.Drawdown{Value: drawdown, Date: day}
	}

	row.AccumulatedPnL = s.lifetime
	row.SeedCapital = s.seed
	row.TotalAsset = total
	row.Cash = s.cash
	row.Drawdown = drawdown

	s.ledger = append(s.ledger, row)
	s.daily = append(s.daily, domain.DailyLogEntry{
		Date:       day,
		TotalAsset: total,
		Cash:       s.cash,
		Price:      close,
		Drawdown:   drawdown,
	})

	s.lastRegime = mode
	s.lastClose = close
	s.lastSimulation = day
}

// exitPositions ages every open position by one day and closes those that
// hit their target or holding-day limit. Returns the realized PnL of the day.
func (s *runState) exitPositions(day time.Time, close float64) float64 {
	var dayPnL float64

	kept := s.positions[:0]
	for _, pos := range s.positions {
		pos.DaysHeld++

		var kind domain.ExitKind
		switch {
		case close >= domain.Round2(pos.TargetSellPrice):
			kind = domain.ExitKindTarget
		case pos.DaysHeld >= pos.HoldingDayLimit:
			kind = domain.ExitKindForced
		default:
			kept = append(kept, pos)
			continue
		}

		dayPnL += s.closePosition(pos, day, close, kind)
	}
	s.positions = kept

	return dayPnL
}

// closePosition sells pos at close and writes the sell side onto the ledger
// row that opened it.
func (s *runState) closePosition(pos domain.Position, day time.Time, close float64, kind domain.ExitKind) float64 {
	qty := float64(pos.Quantity)
	revenue := close * qty
	sellFee := revenue * s.feeRate
	entryCost := pos.EntryPrice * qty
	buyFee := entryCost * s.feeRate
	pnl := revenue - entryCost - sellFee - buyFee

	s.cash += revenue - sellFee

	grossPct := 0.0
	if entryCost > 0 {
		grossPct = (revenue - entryCost) / entryCost * 100
	}

	row := &s.ledger[pos.LedgerRowID]
	row.Sold = true
	row.SellDate = day
	row.SellPrice = close
	row.SellQuantity = pos.Quantity
	row.SellAmount = revenue
	row.Fee += sellFee
	row.ExitKind = kind
	row.RealizedPnL = pnl
	row.RealizedPct = grossPct

	s.closed = append(s.closed, domain.ClosedTrade{
		LedgerRowID:   pos.LedgerRowID,
		EntryDate:     pos.EntryDate,
		ExitDate:      day,
		EntryPrice:    pos.EntryPrice,
		ExitPrice:     close,
		Quantity:      pos.Quantity,
		PnL:           pnl,
		PnLPct:        grossPct,
		Fees:          sellFee + buyFee,
		ExitKind:      kind,
		RegimeAtEntry: pos.RegimeAtEntry,
		DaysHeld:      pos.DaysHeld,
	})

	s.periodPnL += pnl
	return pnl
}

// buy executes a qualifying limit-on-close buy. A zero quantity still opens
// a position so the tier advances.
func (s *runState) buy(row *domain.LedgerRow, p domain.RegimeParams, tier int, trigger, close float64) {
	allocation := s.seed * p.Weight(tier) / 100
	row.Allocation = allocation

	var qty int64
	if allocation > 0 {
		row.TargetQuantity = int64(math.Floor(allocation / trigger))
		qty = affordableQuantity(row.TargetQuantity, close, s.cash, s.feeRate)
	}

	cost := float64(qty) * close
	if qty > 0 {
		fee := cost * s.feeRate
		s.cash -= cost + fee
		row.Fee = fee
	}

	target := close * (1 + p.TargetPct/100)

	row.Bought = true
	row.BuyPrice = close
	row.BuyQuantity = qty
	row.BuyAmount = cost
	row.TargetSellPrice = target

	s.positions = append(s.positions, domain.Position{
		EntryPrice:      close,
		Quantity:        qty,
		EntryDate:       row.Date,
		RegimeAtEntry:   row.Regime,
		HoldingDayLimit: p.HoldingDayLimit,
		TargetSellPrice: target,
		LedgerRowID:     row.ID,
	})
}

// affordableQuantity caps want at what cash covers, fee leg included.
func affordableQuantity(want int64, price, cash, feeRate float64) int64 {
	if want <= 0 || price <= 0 {
		return 0
	}
	cost := float64(want) * price
	if cash >= cost+cost*feeRate {
		return want
	}
	maxQty := math.Floor(cash / (price * (1 + feeRate)))
	if maxQty <= 0 {
		return 0
	}
	return int64(maxQty)
}

// rebalanceAdjustment converts a cycle's realized PnL into a seed change.
func rebalanceAdjustment(periodPnL float64, r domain.RebalanceParams) float64 {
	switch {
	case periodPnL > 0:
		return periodPnL * r.ProfitAddPct / 100
	case periodPnL < 0:
		return -math.Abs(periodPnL) * r.LossSubPct / 100
	default:
		return 0
	}
}

func (s *runState) result() *domain.SimulationResult {
	finalEquity := s.params.InitialCapital
	if n := len(s.daily); n > 0 {
		finalEquity = s.daily[n-1].TotalAsset
	}

	positions := make([]domain.Position, len(s.positions))
	copy(positions, s.positions)

	return &domain.SimulationResult{
		Params:       s.params,
		Ledger:       s.ledger,
		DailyLog:     s.daily,
		ClosedTrades: s.closed,
		FinalEquity:  finalEquity,
		MaxDrawdown:  s.maxDrawdown,
		FinalState: domain.FinalState{
			Positions:        positions,
			Cash:             s.cash,
			SeedCapital:      s.seed,
			Regime:           s.lastRegime,
			LastClose:        s.lastClose,
			LastDate:         s.lastSimulation,
			HasPendingRebal:  s.hasPending,
			PendingRebalance: s.pending,
			RebalanceDay:     s.rebalanceDay,
		},
	}
}
