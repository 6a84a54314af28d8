// Package optimizer searches the parameter space by random sampling and
// ranks candidates by annualized return.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rs/zerolog"

	"regime-tier-lab/internal/batch"
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/metrics"
	"regime-tier-lab/internal/simulation"
)

// Sampling grid.
const (
	PctStep       = 0.1 // buy limit and target percentages
	RebalanceStep = 5.0 // rebalance percentages

	TierSlots     = 8
	TierWeightMin = 3
	TierWeightMax = 40
)

// Config controls the search.
type Config struct {
	Candidates int          `yaml:"candidates"`
	TopN       int          `yaml:"top_n"`
	Seed       uint64       `yaml:"seed"`
	Bounds     Bounds       `yaml:"bounds"`
	Batch      batch.Config `yaml:"batch"`
}

// DefaultConfig returns 1000 candidates over DefaultBounds, keeping the top 10.
func DefaultConfig() Config {
	return Config{
		Candidates: 1000,
		TopN:       10,
		Seed:       1,
		Bounds:     DefaultBounds(),
		Batch:      batch.DefaultConfig(),
	}
}

// Validate checks the config and its bounds.
func (c Config) Validate() error {
	if c.Candidates <= 0 {
		return fmt.Errorf("%w: candidates %d", ErrInvalidBounds, c.Candidates)
	}
	if c.TopN <= 0 {
		return fmt.Errorf("%w: top_n %d", ErrInvalidBounds, c.TopN)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBounds, err)
	}
	return c.Bounds.Validate()
}

// Candidate is one sampled parameter set with its run statistics.
type Candidate struct {
	ID           int                     `json:"id"`
	Params       domain.SimulationParams `json:"params"`
	FinalEquity  float64                 `json:"finalEquity"`
	CAGR         float64                 `json:"cagr"`        // %
	MaxDrawdown  float64                 `json:"maxDrawdown"` // %, <= 0
	WinRate      float64                 `json:"winRate"`     // %
	TradeQuality float64                 `json:"tradeQuality"`
	ProfitFactor float64                 `json:"profitFactor"`
	Trades       int                     `json:"trades"`
}

// Report is the ranked search outcome.
type Report struct {
	Candidates int         `json:"candidates"`
	Seed       uint64      `json:"seed"`
	Top        []Candidate `json:"top"`
}

// Optimizer runs random searches.
type Optimizer struct {
	engine *simulation.Engine
	cfg    Config
	log    zerolog.Logger
}

// New creates an optimizer over a shared engine.
func New(engine *simulation.Engine, cfg Config, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		engine: engine,
		cfg:    cfg,
		log:    log.With().Str("component", "optimizer").Logger(),
	}
}

// Run samples cfg.Candidates parameter sets and simulates each once.
// Capital, fee, tier mode and window come from base; regime rules and
// rebalance percentages are sampled.
func (o *Optimizer) Run(ctx context.Context, primary []domain.PriceBar, base domain.SimulationParams, progress batch.ProgressFunc) (*Report, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(o.cfg.Seed, o.cfg.Seed^0x9e3779b97f4a7c15))
	candidates := make([]domain.SimulationParams, o.cfg.Candidates)
	for i := range candidates {
		candidates[i] = Sample(rng, base, o.cfg.Bounds)
	}
	if err := simulation.Validate(candidates[0]); err != nil {
		return nil, err
	}

	o.log.Debug().Int("candidates", len(candidates)).Uint64("seed", o.cfg.Seed).Msg("candidates sampled")

	job := func(_ context.Context, i int) (Candidate, error) {
		res, err := o.engine.Run(primary, candidates[i], nil)
		if err != nil {
			return Candidate{}, err
		}
		s := metrics.Summarize(res)
		return Candidate{
			ID:           i,
			Params:       candidates[i],
			FinalEquity:  s.FinalEquity,
			CAGR:         s.CAGR,
			MaxDrawdown:  s.MaxDrawdown,
			WinRate:      s.WinRate,
			TradeQuality: s.TradeQuality,
			ProfitFactor: s.ProfitFactor,
			Trades:       s.Trades,
		}, nil
	}

	report := func(completed, total int) {
		o.log.Debug().Int("completed", completed).Int("total", total).Msg("batch done")
		if progress != nil {
			progress(completed, total)
		}
	}

	results, err := batch.Run(ctx, o.cfg.Batch, len(candidates), job, report)
	if err != nil {
		return nil, fmt.Errorf("optimizer runs: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].CAGR > results[j].CAGR })

	return &Report{
		Candidates: len(results),
		Seed:       o.cfg.Seed,
		Top:        results[:min(o.cfg.TopN, len(results))],
	}, nil
}

// Sample draws one parameter set within bounds.
func Sample(rng *rand.Rand, base domain.SimulationParams, b Bounds) domain.SimulationParams {
	p := base.Clone()
	p.Safe = sampleRegime(rng, b.Safe)
	p.Offensive = sampleRegime(rng, b.Offensive)
	p.Rebalance = domain.RebalanceParams{
		ProfitAddPct: randomStep(rng, b.ProfitAddPct, RebalanceStep),
		LossSubPct:   randomStep(rng, b.LossSubPct, RebalanceStep),
	}
	return p
}

func sampleRegime(rng *rand.Rand, b RegimeBounds) domain.RegimeParams {
	return domain.RegimeParams{
		BuyLimitPct:     randomStep(rng, b.BuyLimitPct, PctStep),
		TargetPct:       randomStep(rng, b.TargetPct, PctStep),
		HoldingDayLimit: randInt(rng, b.HoldingDayLimit.Min, b.HoldingDayLimit.Max),
		TierWeights:     RandomWeights(rng),
	}
}

// randomStep returns min + k*step for a uniform k keeping the value within
// r, rounded to cents.
func randomStep(rng *rand.Rand, r Range, step float64) float64 {
	steps := int(math.Floor((r.Max-r.Min)/step + 1e-9))
	return domain.Round2(r.Min + float64(randInt(rng, 0, steps))*step)
}

// RandomWeights returns TierSlots weights in [TierWeightMin, TierWeightMax]
// summing to 100: every slot starts at the floor and random slots below the
// cap are incremented one point at a time.
func RandomWeights(rng *rand.Rand) []float64 {
	w := make([]int, TierSlots)
	remaining := 100
	for i := range w {
		w[i] = TierWeightMin
		remaining -= TierWeightMin
	}
	for remaining > 0 {
		i := rng.IntN(TierSlots)
		if w[i] < TierWeightMax {
			w[i]++
			remaining--
		}
	}

	out := make([]float64, TierSlots)
	for i, v := range w {
		out[i] = float64(v)
	}
	return out
}

// randInt returns a uniform integer in [lo, hi].
func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}
