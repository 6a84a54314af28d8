package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"regime-tier-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id for a simulation using SHA256.
// Formula: SHA256(symbol|ref_symbol|params_json|injections_json)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(
	symbol string,
	refSymbol string,
	params domain.SimulationParams,
	injections []domain.InjectionEvent,
) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	if injections == nil {
		injections = []domain.InjectionEvent{}
	}
	injectionsJSON, err := json.Marshal(injections)
	if err != nil {
		return "", fmt.Errorf("marshal injections: %w", err)
	}

	data := fmt.Sprintf("%s|%s|%s|%s",
		symbol,
		refSymbol,
		paramsJSON,
		injectionsJSON,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:]), nil
}
