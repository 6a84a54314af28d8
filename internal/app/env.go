package app

import (
	"context"

	"github.com/rs/zerolog"

	"regime-tier-lab/internal/config"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/orchestrator"
	"regime-tier-lab/pkg/logger"
)

// Env is everything a command needs after startup.
type Env struct {
	Config       *config.Config
	Log          zerolog.Logger
	Metrics      *observability.Metrics
	Stores       *Stores
	Orchestrator *orchestrator.Orchestrator
}

// Setup loads the config at path, builds the logger, opens the stores and
// seeds memory-backed bars from the ingest directory when seed is set.
func Setup(ctx context.Context, path string, seed bool) (*Env, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log)
	logger.SetGlobalLogger(log)

	m := observability.DefaultMetrics
	stores, err := OpenStores(ctx, cfg.Storage, m, log)
	if err != nil {
		return nil, err
	}
	if seed {
		if err := stores.Seed(ctx, cfg, m, log); err != nil {
			stores.Close()
			return nil, err
		}
	}

	return &Env{
		Config:       cfg,
		Log:          log,
		Metrics:      m,
		Stores:       stores,
		Orchestrator: stores.NewOrchestrator(m, log),
	}, nil
}

// Close releases the stores.
func (e *Env) Close() {
	e.Stores.Close()
}

// Inputs returns the configured symbols, params and injections.
func (e *Env) Inputs() (orchestrator.Inputs, error) {
	params, err := e.Config.Params()
	if err != nil {
		return orchestrator.Inputs{}, err
	}
	injections, err := e.Config.InjectionEvents()
	if err != nil {
		return orchestrator.Inputs{}, err
	}
	return orchestrator.Inputs{
		Symbol:     e.Config.Symbol,
		RefSymbol:  e.Config.RefSymbol,
		Params:     params,
		Injections: injections,
	}, nil
}
