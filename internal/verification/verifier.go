// Package verification checks simulation results against their invariants and
// verifies that stored trade records match a replayed simulation.
package verification

import (
	"context"
	"math"

	"regime-tier-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected any    `json:"expected"` // stored value
	Actual   any    `json:"actual"`   // replayed value
}

// VerificationResult contains the result of verifying a single trade.
type VerificationResult struct {
	TradeID     string            `json:"tradeId"`
	Match       bool              `json:"match"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
	StoredPnL   float64           `json:"storedPnl"`
	ReplayedPnL float64           `json:"replayedPnl"`
}

// VerificationReport contains results for a run's trades.
type VerificationReport struct {
	RunID           string               `json:"runId"`
	TotalTrades     int                  `json:"totalTrades"`
	MatchedTrades   int                  `json:"matchedTrades"`
	DivergentTrades int                  `json:"divergentTrades"`
	MissingTrades   int                  `json:"missingTrades"` // replayed but not stored
	Violations      []Violation          `json:"violations,omitempty"`
	Results         []VerificationResult `json:"results"`
}

// OK reports whether every trade matched and the replay held its invariants.
func (r *VerificationReport) OK() bool {
	return r.DivergentTrades == 0 && r.MissingTrades == 0 && len(r.Violations) == 0
}

// Verifier interface for trade replay verification.
type Verifier interface {
	// VerifyTrade verifies a single trade by ID.
	// It loads the stored trade, re-executes its run and compares all fields.
	VerifyTrade(ctx context.Context, tradeID string) (*VerificationResult, error)

	// VerifyRun verifies every stored trade of a run.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// CompareTradeRecords compares two trade records and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareTradeRecords(stored, replayed *domain.TradeRecord) []FieldDivergence {
	var divergences []FieldDivergence

	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	// Identity must match exactly
	if stored.TradeID != replayed.TradeID {
		add("TradeID", stored.TradeID, replayed.TradeID)
	}
	if stored.RunID != replayed.RunID {
		add("RunID", stored.RunID, replayed.RunID)
	}

	// Entry values
	if !stored.EntryDate.Equal(replayed.EntryDate) {
		add("EntryDate", stored.EntryDate, replayed.EntryDate)
	}
	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		add("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	}
	if stored.Quantity != replayed.Quantity {
		add("Quantity", stored.Quantity, replayed.Quantity)
	}
	if stored.Regime != replayed.Regime {
		add("Regime", stored.Regime, replayed.Regime)
	}

	// Exit values
	if !stored.ExitDate.Equal(replayed.ExitDate) {
		add("ExitDate", stored.ExitDate, replayed.ExitDate)
	}
	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		add("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	}
	if stored.ExitKind != replayed.ExitKind {
		add("ExitKind", stored.ExitKind, replayed.ExitKind)
	}
	if stored.DaysHeld != replayed.DaysHeld {
		add("DaysHeld", stored.DaysHeld, replayed.DaysHeld)
	}

	// Outcome
	if !floatEquals(stored.Fees, replayed.Fees) {
		add("Fees", stored.Fees, replayed.Fees)
	}
	if !floatEquals(stored.PnL, replayed.PnL) {
		add("PnL", stored.PnL, replayed.PnL)
	}
	if !floatEquals(stored.PnLPct, replayed.PnLPct) {
		add("PnLPct", stored.PnLPct, replayed.PnLPct)
	}

	return divergences
}

// floatEquals compares two float64 values with tolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
