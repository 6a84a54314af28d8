package storage

import "errors"

// Sentinel errors shared by the memory, Postgres and ClickHouse stores.
// Callers match them with errors.Is; backends wrap driver errors around them.
var (
	// ErrNotFound means no run summary or trade matches the requested ID.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicateKey means the run ID or trade ID was already written.
	// Runs and trades are immutable once stored, so a repeat insert is
	// reported rather than applied.
	ErrDuplicateKey = errors.New("storage: record already stored")

	// ErrInvalidInput rejects records missing a key field (run ID, run kind,
	// trade ID or symbol) before they reach a backend.
	ErrInvalidInput = errors.New("storage: record missing key field")
)
