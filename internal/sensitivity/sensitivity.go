// Package sensitivity measures how annualized return reacts to local
// perturbations of the buy limit and target percentages.
package sensitivity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog"

	"regime-tier-lab/internal/batch"
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/metrics"
	"regime-tier-lab/internal/simulation"
)

// ErrInvalidConfig is returned when the grid config is malformed.
var ErrInvalidConfig = errors.New("invalid sensitivity config")

// Config controls the grid. The grid has 2*Steps+1 cells per axis.
type Config struct {
	Steps int          `yaml:"steps"`
	Step  float64      `yaml:"step"` // percentage points per grid step
	Batch batch.Config `yaml:"batch"`
}

// DefaultConfig returns a 15x15 grid at 0.3 point steps, reporting progress
// every 10 cells.
func DefaultConfig() Config {
	return Config{
		Steps: 7,
		Step:  0.3,
		Batch: batch.Config{BatchSize: 10, Workers: runtime.GOMAXPROCS(0)},
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps %d", ErrInvalidConfig, c.Steps)
	}
	if c.Step <= 0 || math.IsNaN(c.Step) || math.IsInf(c.Step, 0) {
		return fmt.Errorf("%w: step %v", ErrInvalidConfig, c.Step)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Size returns the number of cells per axis.
func (c Config) Size() int {
	return 2*c.Steps + 1
}

// Cell is one grid point.
type Cell struct {
	X           int     `json:"x"`           // buy limit step, -Steps..Steps
	Y           int     `json:"y"`           // target step, -Steps..Steps
	BuyLimitAdj float64 `json:"buyLimitAdj"` // percentage points added to both regimes
	TargetAdj   float64 `json:"targetAdj"`
	CAGR        float64 `json:"cagr"` // %
}

// Report is the full grid with its summary statistics.
type Report struct {
	Steps          int         `json:"steps"`
	Step           float64     `json:"step"`
	Grid           [][]float64 `json:"grid"` // Grid[y+Steps][x+Steps] = CAGR
	Cells          []Cell      `json:"cells"`
	CenterReturn   float64     `json:"centerReturn"`
	MeanReturn     float64     `json:"meanReturn"`
	MinReturn      float64     `json:"minReturn"`
	MaxReturn      float64     `json:"maxReturn"`
	StabilityRatio float64     `json:"stabilityRatio"`
}

// Analyzer runs sensitivity grids.
type Analyzer struct {
	engine *simulation.Engine
	cfg    Config
	log    zerolog.Logger
}

// NewAnalyzer creates an analyzer over a shared engine.
func NewAnalyzer(engine *simulation.Engine, cfg Config, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		engine: engine,
		cfg:    cfg,
		log:    log.With().Str("component", "sensitivity").Logger(),
	}
}

// Run simulates every grid cell over the base params window.
func (a *Analyzer) Run(ctx context.Context, primary []domain.PriceBar, base domain.SimulationParams, progress batch.ProgressFunc) (*Report, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := simulation.Validate(base); err != nil {
		return nil, err
	}

	size := a.cfg.Size()
	cells := make([]Cell, 0, size*size)
	for y := -a.cfg.Steps; y <= a.cfg.Steps; y++ {
		for x := -a.cfg.Steps; x <= a.cfg.Steps; x++ {
			cells = append(cells, Cell{
				X:           x,
				Y:           y,
				BuyLimitAdj: float64(x) * a.cfg.Step,
				TargetAdj:   float64(y) * a.cfg.Step,
			})
		}
	}

	days := metrics.WindowDays(base.StartDate, base.EndDate)

	job := func(_ context.Context, i int) (float64, error) {
		res, err := a.engine.Run(primary, Perturb(base, cells[i].BuyLimitAdj, cells[i].TargetAdj), nil)
		if err != nil {
			return 0, err
		}
		return metrics.AnnualizedReturn(base.InitialCapital, res.FinalEquity, days), nil
	}

	report := func(completed, total int) {
		a.log.Debug().Int("completed", completed).Int("total", total).Msg("cells done")
		if progress != nil {
			progress(completed, total)
		}
	}

	returns, err := batch.Run(ctx, a.cfg.Batch, len(cells), job, report)
	if err != nil {
		return nil, fmt.Errorf("sensitivity grid: %w", err)
	}

	out := &Report{
		Steps: a.cfg.Steps,
		Step:  a.cfg.Step,
		Grid:  make([][]float64, size),
		Cells: cells,
	}
	for row := range out.Grid {
		out.Grid[row] = returns[row*size : (row+1)*size : (row+1)*size]
	}
	for i := range cells {
		cells[i].CAGR = returns[i]
	}

	out.CenterReturn = out.Grid[a.cfg.Steps][a.cfg.Steps]
	out.MeanReturn = metrics.Mean(returns)
	out.MinReturn, out.MaxReturn = returns[0], returns[0]
	for _, r := range returns[1:] {
		out.MinReturn = math.Min(out.MinReturn, r)
		out.MaxReturn = math.Max(out.MaxReturn, r)
	}
	if out.CenterReturn > 0 {
		out.StabilityRatio = out.MeanReturn / out.CenterReturn
	}

	return out, nil
}

// Perturb shifts buy limit and target percentages in both regimes.
// A shifted value is floored at 0; a zero shift keeps the base value.
func Perturb(base domain.SimulationParams, buyLimitAdj, targetAdj float64) domain.SimulationParams {
	p := base.Clone()
	for _, rp := range []*domain.RegimeParams{&p.Safe, &p.Offensive} {
		rp.BuyLimitPct = shift(rp.BuyLimitPct, buyLimitAdj)
		rp.TargetPct = shift(rp.TargetPct, targetAdj)
	}
	return p
}

func shift(v, adj float64) float64 {
	if adj == 0 {
		return v
	}
	return math.Max(0, v+adj)
}
