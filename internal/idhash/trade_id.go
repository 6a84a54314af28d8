package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"regime-tier-lab/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|ledger_row_id|entry_date)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	runID string,
	ledgerRowID int,
	entryDate time.Time,
) string {
	data := fmt.Sprintf("%s|%d|%s",
		runID,
		ledgerRowID,
		entryDate.UTC().Format(domain.DateLayout),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
