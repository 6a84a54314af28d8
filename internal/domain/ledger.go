package domain

import "time"

// Position is an open lot. TargetSellPrice is fixed at creation.
type Position struct {
	EntryPrice      float64
	Quantity        int64
	EntryDate       time.Time
	RegimeAtEntry   Regime
	DaysHeld        int
	HoldingDayLimit int
	TargetSellPrice float64
	LedgerRowID     int // index of the buy-day row in the ledger
}

// LedgerRow is one simulated trading day.
// Buy fields are filled on creation; sell fields are written later,
// onto this row, by the day that closes the position opened here.
type LedgerRow struct {
	ID        int
	Date      time.Time
	Close     float64
	Regime    Regime
	ChangePct float64 // close vs previous close, %

	// Buy side
	Tier            int
	TriggerPrice    float64 // limit-on-close buy price
	Allocation      float64 // seed * tier weight
	TargetQuantity  int64
	Bought          bool
	BuyPrice        float64
	BuyQuantity     int64
	BuyAmount       float64
	TargetSellPrice float64
	Fee             float64 // entry leg, plus exit leg once sold

	// Sell side (retroactive)
	Sold         bool
	SellDate     time.Time
	SellPrice    float64
	SellQuantity int64
	SellAmount   float64
	ExitKind     ExitKind
	RealizedPnL  float64
	RealizedPct  float64

	// Day totals
	AccumulatedPnL float64
	CapitalRefresh float64 // injections + applied rebalance of the day
	SeedCapital    float64
	TotalAsset     float64
	Cash           float64
	Drawdown       float64
}

// DailyLogEntry is the equity snapshot of one simulated day.
type DailyLogEntry struct {
	Date       time.Time `json:"date"`
	TotalAsset float64   `json:"totalAsset"`
	Cash       float64   `json:"cash"`
	Price      float64   `json:"price"`
	Drawdown   float64   `json:"drawdown"` // (total - peak) / peak * 100, <= 0
}

// ClosedTrade is one realized exit.
type ClosedTrade struct {
	LedgerRowID   int       `json:"ledgerRowId"`
	EntryDate     time.Time `json:"entryDate"`
	ExitDate      time.Time `json:"exitDate"`
	EntryPrice    float64   `json:"entryPrice"`
	ExitPrice     float64   `json:"exitPrice"`
	Quantity      int64     `json:"quantity"`
	PnL           float64   `json:"pnl"`
	PnLPct        float64   `json:"pnlPct"` // gross return before fees, %
	Fees          float64   `json:"fees"`
	ExitKind      ExitKind  `json:"exitKind"`
	RegimeAtEntry Regime    `json:"regimeAtEntry"`
	DaysHeld      int       `json:"daysHeld"`
}
