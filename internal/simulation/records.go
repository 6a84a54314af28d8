package simulation

import (
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/idhash"
)

// TradeRecords converts a run's closed trades into persistable records,
// in exit order. Trade IDs derive from the run ID and the buy-day ledger row.
func TradeRecords(runID string, res *domain.SimulationResult) []*domain.TradeRecord {
	records := make([]*domain.TradeRecord, 0, len(res.ClosedTrades))
	for _, t := range res.ClosedTrades {
		records = append(records, &domain.TradeRecord{
			TradeID:    idhash.ComputeTradeID(runID, t.LedgerRowID, t.EntryDate),
			RunID:      runID,
			EntryDate:  t.EntryDate,
			ExitDate:   t.ExitDate,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			Quantity:   t.Quantity,
			PnL:        t.PnL,
			PnLPct:     t.PnLPct,
			Fees:       t.Fees,
			ExitKind:   t.ExitKind,
			Regime:     t.RegimeAtEntry,
			DaysHeld:   t.DaysHeld,
		})
	}
	return records
}
