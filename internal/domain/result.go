package domain

import "time"

// Drawdown is the deepest peak-to-trough decline of a run.
type Drawdown struct {
	Value float64   `json:"value"` // %, <= 0
	Date  time.Time `json:"date"`  // zero when the run never dipped
}

// FinalState is the engine snapshot at the end of a run.
// It is the input of the order sheet generator.
type FinalState struct {
	Positions        []Position `json:"positions"`
	Cash             float64    `json:"cash"`
	SeedCapital      float64    `json:"seedCapital"`
	Regime           Regime     `json:"regime"`
	LastClose        float64    `json:"lastClose"`
	LastDate         time.Time  `json:"lastDate"`
	HasPendingRebal  bool       `json:"hasPendingRebalance"`
	PendingRebalance float64    `json:"pendingRebalance"`
	RebalanceDay     int        `json:"rebalanceDay"` // days into the current 10-day cycle
}

// SimulationResult is the full output of one engine run.
type SimulationResult struct {
	Params       SimulationParams `json:"params"`
	Ledger       []LedgerRow      `json:"ledger"`
	DailyLog     []DailyLogEntry  `json:"dailyLog"`
	ClosedTrades []ClosedTrade    `json:"closedTrades"`
	FinalEquity  float64          `json:"finalEquity"`
	MaxDrawdown  Drawdown         `json:"maxDrawdown"`
	FinalState   FinalState       `json:"finalState"`
}

// StartEquity returns the total asset of the first simulated day,
// or the initial capital when no day was simulated.
func (r *SimulationResult) StartEquity() float64 {
	if len(r.DailyLog) == 0 {
		return r.Params.InitialCapital
	}
	return r.DailyLog[0].TotalAsset
}
