package domain

import "time"

// RunKind identifies what produced a RunSummary.
type RunKind string

// Run kind constants.
const (
	RunKindSimulation  RunKind = "SIMULATION"
	RunKindRobustness  RunKind = "ROBUSTNESS"
	RunKindSensitivity RunKind = "SENSITIVITY"
	RunKindOptimizer   RunKind = "OPTIMIZER"
)

// RunSummary is the persisted headline of a simulation or analysis run.
// Corresponds to run_summaries table in PostgreSQL.
type RunSummary struct {
	RunID        string // deterministic hash for simulations, uuid for analyses
	Kind         RunKind
	Symbol       string // traded instrument
	RefSymbol    string // regime reference instrument
	StartDate    time.Time
	EndDate      time.Time
	ParamsJSON   []byte // SimulationParams (or analysis config) as JSON
	FinalEquity  float64
	CAGR         float64 // %
	MaxDrawdown  float64 // %, <= 0
	WinRate      float64 // %
	TradeQuality float64
	ProfitFactor float64
	TotalTrades  int    // closed trades with quantity > 0 (best candidate for optimizer runs)
	Evaluations  int    // simulations behind the row: 1, windows, grid cells or candidates
	Extra        []byte // kind-specific JSON payload (report body)
	CreatedAt    time.Time
}

// TradeRecord is a closed trade persisted for a simulation run.
// Corresponds to trade_records table in PostgreSQL.
type TradeRecord struct {
	TradeID    string // deterministic hash of run_id + ledger row
	RunID      string
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   int64
	PnL        float64
	PnLPct     float64
	Fees       float64
	ExitKind   ExitKind
	Regime     Regime
	DaysHeld   int
}

// SimulationExtra is the Extra payload of a SIMULATION run summary:
// what a replay needs beyond the params.
type SimulationExtra struct {
	Injections []InjectionEvent `json:"injections"`
}
