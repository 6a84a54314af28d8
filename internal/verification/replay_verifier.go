package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/simulation"
	"regime-tier-lab/internal/storage"
)

var (
	// ErrTradeNotFound is returned when trade ID doesn't exist.
	ErrTradeNotFound = errors.New("trade not found")

	// ErrRunNotFound is returned when run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotReplayable is returned for runs that are not single simulations.
	ErrNotReplayable = errors.New("run is not a replayable simulation")
)

// SeriesLoader loads a normalized price series.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, symbol string) ([]domain.PriceBar, error)
}

// ReplayVerifier implements Verifier interface.
type ReplayVerifier struct {
	tradeStore   storage.TradeRecordStore
	summaryStore storage.RunSummaryStore
	loader       SeriesLoader
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	TradeStore   storage.TradeRecordStore
	SummaryStore storage.RunSummaryStore
	Loader       SeriesLoader
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		tradeStore:   opts.TradeStore,
		summaryStore: opts.SummaryStore,
		loader:       opts.Loader,
	}
}

// replay holds a re-executed run.
type replay struct {
	result     *domain.SimulationResult
	injections []domain.InjectionEvent
	trades     map[string]*domain.TradeRecord
	order      []string
}

// VerifyTrade verifies a single trade by replaying its run.
func (v *ReplayVerifier) VerifyTrade(ctx context.Context, tradeID string) (*VerificationResult, error) {
	// 1. Load stored trade
	stored, err := v.tradeStore.GetByID(ctx, tradeID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}

	// 2. Replay simulation
	rp, err := v.replayRun(ctx, stored.RunID)
	if err != nil {
		return nil, err
	}

	// 3. Compare results
	result := compare(stored, rp.trades[tradeID])
	return &result, nil
}

// VerifyRun verifies all stored trades of a run and checks the replay's invariants.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	rp, err := v.replayRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	stored, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		RunID:       runID,
		TotalTrades: len(stored),
		Results:     make([]VerificationResult, 0, len(stored)),
		Violations:  CheckResult(rp.result, rp.injections),
	}

	seen := make(map[string]bool, len(stored))
	for _, trade := range stored {
		seen[trade.TradeID] = true

		result := compare(trade, rp.trades[trade.TradeID])
		report.Results = append(report.Results, result)
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}

	for _, id := range rp.order {
		if !seen[id] {
			report.MissingTrades++
		}
	}

	return report, nil
}

func compare(stored, replayed *domain.TradeRecord) VerificationResult {
	if replayed == nil {
		return VerificationResult{
			TradeID:   stored.TradeID,
			StoredPnL: stored.PnL,
			Divergences: []FieldDivergence{
				{Field: "TradeID", Expected: stored.TradeID, Actual: nil},
			},
		}
	}

	divergences := CompareTradeRecords(stored, replayed)
	return VerificationResult{
		TradeID:     stored.TradeID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
		StoredPnL:   stored.PnL,
		ReplayedPnL: replayed.PnL,
	}
}

// replayRun re-executes a stored simulation run from its summary.
func (v *ReplayVerifier) replayRun(ctx context.Context, runID string) (*replay, error) {
	summary, err := v.summaryStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	if summary.Kind != domain.RunKindSimulation {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotReplayable, runID, summary.Kind)
	}

	var params domain.SimulationParams
	if err := json.Unmarshal(summary.ParamsJSON, &params); err != nil {
		return nil, fmt.Errorf("decode params of %s: %w", runID, err)
	}
	var extra domain.SimulationExtra
	if len(summary.Extra) > 0 {
		if err := json.Unmarshal(summary.Extra, &extra); err != nil {
			return nil, fmt.Errorf("decode extra of %s: %w", runID, err)
		}
	}

	primary, err := v.loader.LoadSeries(ctx, summary.Symbol)
	if err != nil {
		return nil, err
	}
	reference, err := v.loader.LoadSeries(ctx, summary.RefSymbol)
	if err != nil {
		return nil, err
	}

	res, err := simulation.Run(primary, reference, params, extra.Injections)
	if err != nil {
		return nil, err
	}

	rp := &replay{result: res, injections: extra.Injections, trades: make(map[string]*domain.TradeRecord)}
	for _, t := range simulation.TradeRecords(runID, res) {
		rp.trades[t.TradeID] = t
		rp.order = append(rp.order, t.TradeID)
	}
	return rp, nil
}
