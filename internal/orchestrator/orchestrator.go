// Package orchestrator wires stored price series to the engine, the analyzers
// and the run stores. Every entry point loads normalized series, executes,
// persists its run summary and records metrics.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"regime-tier-lab/internal/batch"
	"regime-tier-lab/internal/decision"
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/idhash"
	"regime-tier-lab/internal/metrics"
	"regime-tier-lab/internal/normalization"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/optimizer"
	"regime-tier-lab/internal/orders"
	"regime-tier-lab/internal/robustness"
	"regime-tier-lab/internal/sensitivity"
	"regime-tier-lab/internal/simulation"
	"regime-tier-lab/internal/storage"
	"regime-tier-lab/internal/sufficiency"
	"regime-tier-lab/internal/verification"
)

// Analysis kinds used as metric labels.
const (
	kindRobustness  = "robustness"
	kindSensitivity = "sensitivity"
	kindOptimizer   = "optimizer"
)

// Orchestrator coordinates series loading, execution and persistence.
type Orchestrator struct {
	barStore     storage.PriceBarStore
	summaryStore storage.RunSummaryStore
	tradeStore   storage.TradeRecordStore
	loader       *normalization.Runner
	metrics      *observability.Metrics
	log          zerolog.Logger
	now          func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	PriceBarStore    storage.PriceBarStore
	RunSummaryStore  storage.RunSummaryStore
	TradeRecordStore storage.TradeRecordStore

	// Metrics is optional; nil disables recording.
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	log := opts.Logger.With().Str("component", "orchestrator").Logger()
	return &Orchestrator{
		barStore:     opts.PriceBarStore,
		summaryStore: opts.RunSummaryStore,
		tradeStore:   opts.TradeRecordStore,
		loader:       normalization.NewRunner(opts.PriceBarStore, opts.Logger),
		metrics:      opts.Metrics,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Inputs names the series and parameters of a run.
type Inputs struct {
	Symbol     string
	RefSymbol  string
	Params     domain.SimulationParams
	Injections []domain.InjectionEvent
}

// SimulationRun is the outcome of a single simulation.
type SimulationRun struct {
	RunID      string                   `json:"runId"`
	Existing   bool                     `json:"existing"` // identical run was already stored
	Summary    metrics.Summary          `json:"summary"`
	Violations []verification.Violation `json:"violations,omitempty"`
	Result     *domain.SimulationResult `json:"-"`
}

// AnalysisRun is the outcome of a persisted analysis.
type AnalysisRun[R any] struct {
	RunID  string `json:"runId"`
	Report *R     `json:"report"`
}

// GateConfig holds the analysis settings and thresholds of a gate run.
type GateConfig struct {
	Robustness  robustness.Config
	Sensitivity sensitivity.Config
	Thresholds  decision.Thresholds
	Sufficiency sufficiency.Thresholds
}

// GateRun is the outcome of a full decision gate. The analyses are nil when
// the data checks failed.
type GateRun struct {
	Sufficiency *sufficiency.Result              `json:"sufficiency"`
	Robustness  *AnalysisRun[robustness.Report]  `json:"robustness,omitempty"`
	Sensitivity *AnalysisRun[sensitivity.Report] `json:"sensitivity,omitempty"`
	Result      *decision.DecisionResult         `json:"result"`
}

// load returns the normalized primary and reference series.
func (o *Orchestrator) load(ctx context.Context, in Inputs) (primary, reference []domain.PriceBar, err error) {
	primary, err = o.loader.LoadSeries(ctx, in.Symbol)
	if err != nil {
		return nil, nil, err
	}
	reference, err = o.loader.LoadSeries(ctx, in.RefSymbol)
	if err != nil {
		return nil, nil, err
	}
	return primary, reference, nil
}

// Simulate runs one simulation and persists its summary and trades.
// Run IDs are deterministic, so an identical run already stored is
// returned without writing again.
func (o *Orchestrator) Simulate(ctx context.Context, in Inputs) (*SimulationRun, error) {
	runID, err := idhash.ComputeRunID(in.Symbol, in.RefSymbol, in.Params, in.Injections)
	if err != nil {
		return nil, err
	}

	primary, reference, err := o.load(ctx, in)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := simulation.Run(primary, reference, in.Params, in.Injections)
	if o.metrics != nil {
		o.metrics.RecordSimulation(time.Since(start).Seconds(), err, exitCounts(res))
	}
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", in.Symbol, err)
	}

	run := &SimulationRun{
		RunID:      runID,
		Summary:    metrics.Summarize(res),
		Violations: verification.CheckResult(res, in.Injections),
		Result:     res,
	}

	for _, v := range run.Violations {
		o.log.Warn().
			Str("run_id", runID).
			Str("invariant", v.Invariant).
			Str("detail", v.Detail).
			Msg("invariant violated")
	}

	existing, err := o.persistSimulation(ctx, in, run)
	if err != nil {
		return nil, err
	}
	run.Existing = existing

	o.log.Info().
		Str("run_id", runID).
		Str("symbol", in.Symbol).
		Float64("final_equity", run.Summary.FinalEquity).
		Float64("cagr", run.Summary.CAGR).
		Float64("max_drawdown", run.Summary.MaxDrawdown).
		Int("trades", run.Summary.Trades).
		Bool("existing", existing).
		Msg("simulation finished")

	return run, nil
}

func (o *Orchestrator) persistSimulation(ctx context.Context, in Inputs, run *SimulationRun) (bool, error) {
	if _, err := o.summaryStore.GetByID(ctx, run.RunID); err == nil {
		return true, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	paramsJSON, err := json.Marshal(in.Params)
	if err != nil {
		return false, fmt.Errorf("marshal params: %w", err)
	}
	injections := in.Injections
	if injections == nil {
		injections = []domain.InjectionEvent{}
	}
	extra, err := json.Marshal(domain.SimulationExtra{Injections: injections})
	if err != nil {
		return false, fmt.Errorf("marshal injections: %w", err)
	}

	s := run.Summary
	summary := &domain.RunSummary{
		RunID:        run.RunID,
		Kind:         domain.RunKindSimulation,
		Symbol:       in.Symbol,
		RefSymbol:    in.RefSymbol,
		StartDate:    in.Params.StartDate,
		EndDate:      in.Params.EndDate,
		ParamsJSON:   paramsJSON,
		FinalEquity:  s.FinalEquity,
		CAGR:         s.CAGR,
		MaxDrawdown:  s.MaxDrawdown,
		WinRate:      s.WinRate,
		TradeQuality: s.TradeQuality,
		ProfitFactor: s.ProfitFactor,
		TotalTrades:  s.Trades,
		Evaluations:  1,
		Extra:        extra,
		CreatedAt:    o.now(),
	}

	// Trades go first: a stored summary marks the run complete. Trade IDs derive
	// from the run ID, so duplicates are trades left by an interrupted attempt.
	trades := simulation.TradeRecords(run.RunID, run.Result)
	if len(trades) > 0 {
		err := o.tradeStore.InsertBulk(ctx, trades)
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return false, fmt.Errorf("store trades %s: %w", run.RunID, err)
		}
	}

	if err := o.summaryStore.Insert(ctx, summary); err != nil {
		return false, fmt.Errorf("store summary %s: %w", run.RunID, err)
	}
	return false, nil
}

// OrderSheet simulates through the last stored bar and resolves the next
// session's orders from the final state.
func (o *Orchestrator) OrderSheet(ctx context.Context, in Inputs) (*orders.Sheet, *orders.Plan, error) {
	primary, reference, err := o.load(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	res, err := simulation.Run(primary, reference, in.Params, in.Injections)
	if err != nil {
		return nil, nil, fmt.Errorf("simulate %s: %w", in.Symbol, err)
	}

	sheet, err := orders.GenerateSheet(res.FinalState, in.Params)
	if err != nil {
		return nil, nil, err
	}
	plan := orders.Resolve(sheet)

	o.log.Info().
		Str("symbol", in.Symbol).
		Time("session", sheet.SessionDate).
		Str("regime", string(sheet.Regime)).
		Str("status", string(plan.Status)).
		Int("orders", len(plan.Orders)).
		Msg("order sheet generated")

	return sheet, plan, nil
}

// Robustness runs the sampled-window analysis and persists its report.
func (o *Orchestrator) Robustness(ctx context.Context, in Inputs, cfg robustness.Config, progress batch.ProgressFunc) (*AnalysisRun[robustness.Report], error) {
	primary, reference, err := o.load(ctx, in)
	if err != nil {
		return nil, err
	}

	tester := robustness.NewTester(simulation.NewEngine(reference), cfg, o.log)
	start := time.Now()
	report, err := tester.Run(ctx, primary, in.Params, o.progress(kindRobustness, progress))
	o.recordAnalysis(kindRobustness, start, err)
	if err != nil {
		return nil, err
	}

	summary := o.analysisSummary(domain.RunKindRobustness, in)
	summary.CAGR = report.MeanCAGR
	summary.MaxDrawdown = report.MeanMaxDrawdown
	summary.WinRate = report.MeanWinRate
	summary.TradeQuality = report.MeanTradeQuality
	summary.Evaluations = report.Runs
	for _, r := range report.Results {
		summary.TotalTrades += r.Trades
	}

	if err := o.persistAnalysis(ctx, summary, in.Params, cfg, report); err != nil {
		return nil, err
	}

	o.log.Info().
		Str("run_id", summary.RunID).
		Int("runs", report.Runs).
		Float64("survival_rate", report.SurvivalRate).
		Float64("mean_cagr", report.MeanCAGR).
		Msg("robustness finished")

	return &AnalysisRun[robustness.Report]{RunID: summary.RunID, Report: report}, nil
}

// Sensitivity runs the parameter grid and persists its report.
func (o *Orchestrator) Sensitivity(ctx context.Context, in Inputs, cfg sensitivity.Config, progress batch.ProgressFunc) (*AnalysisRun[sensitivity.Report], error) {
	primary, reference, err := o.load(ctx, in)
	if err != nil {
		return nil, err
	}

	analyzer := sensitivity.NewAnalyzer(simulation.NewEngine(reference), cfg, o.log)
	start := time.Now()
	report, err := analyzer.Run(ctx, primary, in.Params, o.progress(kindSensitivity, progress))
	o.recordAnalysis(kindSensitivity, start, err)
	if err != nil {
		return nil, err
	}

	summary := o.analysisSummary(domain.RunKindSensitivity, in)
	summary.CAGR = report.CenterReturn
	summary.Evaluations = len(report.Cells)

	if err := o.persistAnalysis(ctx, summary, in.Params, cfg, report); err != nil {
		return nil, err
	}

	o.log.Info().
		Str("run_id", summary.RunID).
		Float64("center", report.CenterReturn).
		Float64("mean", report.MeanReturn).
		Float64("stability", report.StabilityRatio).
		Msg("sensitivity finished")

	return &AnalysisRun[sensitivity.Report]{RunID: summary.RunID, Report: report}, nil
}

// Optimize runs the random parameter search and persists its ranking.
func (o *Orchestrator) Optimize(ctx context.Context, in Inputs, cfg optimizer.Config, progress batch.ProgressFunc) (*AnalysisRun[optimizer.Report], error) {
	primary, reference, err := o.load(ctx, in)
	if err != nil {
		return nil, err
	}

	opt := optimizer.New(simulation.NewEngine(reference), cfg, o.log)
	start := time.Now()
	report, err := opt.Run(ctx, primary, in.Params, o.progress(kindOptimizer, progress))
	o.recordAnalysis(kindOptimizer, start, err)
	if err != nil {
		return nil, err
	}

	summary := o.analysisSummary(domain.RunKindOptimizer, in)
	summary.Evaluations = report.Candidates
	if len(report.Top) > 0 {
		best := report.Top[0]
		summary.FinalEquity = best.FinalEquity
		summary.CAGR = best.CAGR
		summary.MaxDrawdown = best.MaxDrawdown
		summary.WinRate = best.WinRate
		summary.TradeQuality = best.TradeQuality
		summary.ProfitFactor = best.ProfitFactor
		summary.TotalTrades = best.Trades
	}

	if err := o.persistAnalysis(ctx, summary, in.Params, cfg, report); err != nil {
		return nil, err
	}

	o.log.Info().
		Str("run_id", summary.RunID).
		Int("candidates", report.Candidates).
		Int("top", len(report.Top)).
		Msg("optimization finished")

	return &AnalysisRun[optimizer.Report]{RunID: summary.RunID, Report: report}, nil
}

// Gate checks data sufficiency, runs robustness and sensitivity, then
// evaluates the decision gate. Insufficient data short-circuits to an
// INSUFFICIENT_DATA decision without running the analyses.
func (o *Orchestrator) Gate(ctx context.Context, in Inputs, cfg GateConfig) (*GateRun, error) {
	primary, reference, err := o.load(ctx, in)
	if err != nil {
		return nil, err
	}

	gate := &GateRun{
		Sufficiency: sufficiency.NewChecker(cfg.Sufficiency).Check(primary, reference, in.Params),
	}
	checks := dataChecks(gate.Sufficiency)

	if result := decision.Insufficient(in.Symbol, checks); result != nil {
		gate.Result = result
		o.recordDecision(in.Symbol, result)
		return gate, nil
	}

	gate.Robustness, err = o.Robustness(ctx, in, cfg.Robustness, nil)
	if err != nil {
		return nil, fmt.Errorf("robustness: %w", err)
	}
	gate.Sensitivity, err = o.Sensitivity(ctx, in, cfg.Sensitivity, nil)
	if err != nil {
		return nil, fmt.Errorf("sensitivity: %w", err)
	}

	input, err := decision.Build(in.Symbol, gate.Robustness.Report, gate.Sensitivity.Report)
	if err != nil {
		return nil, err
	}
	result, err := decision.NewEvaluator(cfg.Thresholds).Evaluate(*input)
	if err != nil {
		return nil, err
	}
	result.DataChecks = checks

	gate.Result = result
	o.recordDecision(in.Symbol, result)
	return gate, nil
}

func (o *Orchestrator) recordDecision(symbol string, result *decision.DecisionResult) {
	if o.metrics != nil {
		o.metrics.RecordDecision(string(result.Decision))
	}
	o.log.Info().
		Str("symbol", symbol).
		Str("decision", string(result.Decision)).
		Msg("gate evaluated")
}

// dataChecks converts sufficiency checks to decision criteria.
func dataChecks(result *sufficiency.Result) []decision.CriterionResult {
	checks := make([]decision.CriterionResult, len(result.Checks))
	for i, c := range result.Checks {
		checks[i] = decision.CriterionResult{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return checks
}

// Verify replays a stored simulation run and compares its trades.
func (o *Orchestrator) Verify(ctx context.Context, runID string) (*verification.VerificationReport, error) {
	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		TradeStore:   o.tradeStore,
		SummaryStore: o.summaryStore,
		Loader:       o.loader,
	})

	report, err := verifier.VerifyRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		invariants := make([]string, 0, len(report.Violations))
		for _, v := range report.Violations {
			invariants = append(invariants, v.Invariant)
		}
		o.metrics.RecordVerification(report.OK(), invariants)
	}

	o.log.Info().
		Str("run_id", runID).
		Int("matched", report.MatchedTrades).
		Int("divergent", report.DivergentTrades).
		Int("missing", report.MissingTrades).
		Int("violations", len(report.Violations)).
		Msg("run verified")

	return report, nil
}

// Symbols lists the symbols with stored bars.
func (o *Orchestrator) Symbols(ctx context.Context) ([]string, error) {
	return o.barStore.Symbols(ctx)
}

// TradeStats aggregates the stored trades of a simulation run.
func (o *Orchestrator) TradeStats(ctx context.Context, runID string) (*metrics.TradeStats, error) {
	return metrics.NewAggregator(o.tradeStore).ComputeForRun(ctx, runID)
}

// Runs lists stored summaries of a kind.
func (o *Orchestrator) Runs(ctx context.Context, kind domain.RunKind) ([]*domain.RunSummary, error) {
	return o.summaryStore.GetByKind(ctx, kind)
}

func (o *Orchestrator) analysisSummary(kind domain.RunKind, in Inputs) *domain.RunSummary {
	return &domain.RunSummary{
		RunID:     uuid.NewString(),
		Kind:      kind,
		Symbol:    in.Symbol,
		RefSymbol: in.RefSymbol,
		StartDate: in.Params.StartDate,
		EndDate:   in.Params.EndDate,
		CreatedAt: o.now(),
	}
}

// persistAnalysis stores params and analysis config under ParamsJSON and
// the report under Extra.
func (o *Orchestrator) persistAnalysis(ctx context.Context, summary *domain.RunSummary, params domain.SimulationParams, cfg, report any) error {
	paramsJSON, err := json.Marshal(struct {
		Params domain.SimulationParams `json:"params"`
		Config any                     `json:"config"`
	}{Params: params, Config: cfg})
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	extra, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	summary.ParamsJSON = paramsJSON
	summary.Extra = extra

	if err := o.summaryStore.Insert(ctx, summary); err != nil {
		return fmt.Errorf("store summary %s: %w", summary.RunID, err)
	}
	return nil
}

func (o *Orchestrator) progress(kind string, next batch.ProgressFunc) batch.ProgressFunc {
	return func(completed, total int) {
		if o.metrics != nil {
			o.metrics.UpdateProgress(kind, completed, total)
		}
		if next != nil {
			next(completed, total)
		}
	}
}

func (o *Orchestrator) recordAnalysis(kind string, start time.Time, err error) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordAnalysis(kind, time.Since(start).Seconds(), err, o.now().Unix())
}

func exitCounts(res *domain.SimulationResult) map[string]int {
	if res == nil {
		return nil
	}
	counts := make(map[string]int, 2)
	for _, t := range res.ClosedTrades {
		if t.Quantity > 0 {
			counts[string(t.ExitKind)]++
		}
	}
	return counts
}
