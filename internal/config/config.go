// Package config loads the YAML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"regime-tier-lab/internal/decision"
	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/optimizer"
	"regime-tier-lab/internal/robustness"
	"regime-tier-lab/internal/sensitivity"
	"regime-tier-lab/internal/simulation"
	"regime-tier-lab/internal/sufficiency"
	"regime-tier-lab/pkg/logger"
)

// ErrInvalidConfig is returned for a configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds application configuration
type Config struct {
	Symbol      string                 `yaml:"symbol"`     // traded instrument
	RefSymbol   string                 `yaml:"ref_symbol"` // regime reference instrument
	Simulation  SimulationConfig       `yaml:"simulation"`
	Injections  []InjectionConfig      `yaml:"injections"`
	Robustness  robustness.Config      `yaml:"robustness"`
	Sensitivity sensitivity.Config     `yaml:"sensitivity"`
	Optimizer   optimizer.Config       `yaml:"optimizer"`
	Gate        decision.Thresholds    `yaml:"gate"`
	Sufficiency sufficiency.Thresholds `yaml:"sufficiency"`
	Storage     StorageConfig          `yaml:"storage"`
	Ingest      IngestConfig           `yaml:"ingest"`
	Log         logger.Config          `yaml:"log"`
}

// SimulationConfig is the YAML form of domain.SimulationParams.
type SimulationConfig struct {
	InitialCapital float64                `yaml:"initial_capital"`
	StartDate      string                 `yaml:"start_date"` // YYYY-MM-DD
	EndDate        string                 `yaml:"end_date"`
	FeeRatePct     float64                `yaml:"fee_rate_pct"`
	TierMode       domain.TierMode        `yaml:"tier_mode"`
	Safe           domain.RegimeParams    `yaml:"safe"`
	Offensive      domain.RegimeParams    `yaml:"offensive"`
	Rebalance      domain.RebalanceParams `yaml:"rebalance"`
}

// InjectionConfig is the YAML form of domain.InjectionEvent.
type InjectionConfig struct {
	Date   string               `yaml:"date"`
	Amount float64              `yaml:"amount"`
	Kind   domain.InjectionKind `yaml:"kind"`
}

// StorageConfig selects the stores. Empty DSNs fall back to memory.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// IngestConfig drives file ingestion and the watch schedule.
type IngestConfig struct {
	Dir      string        `yaml:"dir"`      // directory of SYMBOL.csv / SYMBOL.json files
	Format   string        `yaml:"format"`   // csv or json
	Symbols  []string      `yaml:"symbols"`  // defaults to symbol + ref_symbol
	Schedule string        `yaml:"schedule"` // six-field cron spec
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Symbol:    "SOXL",
		RefSymbol: "QQQ",
		Simulation: SimulationConfig{
			InitialCapital: 10000,
			StartDate:      "2011-03-11",
			EndDate:        "2025-12-31",
			TierMode:       domain.TierModeSequential,
			Safe: domain.RegimeParams{
				BuyLimitPct:     3,
				TargetPct:       0.2,
				HoldingDayLimit: 30,
				TierWeights:     []float64{10, 15, 20, 25, 30},
			},
			Offensive: domain.RegimeParams{
				BuyLimitPct:     5,
				TargetPct:       2.5,
				HoldingDayLimit: 7,
				TierWeights:     []float64{10, 15, 20, 25, 30},
			},
			Rebalance: domain.RebalanceParams{ProfitAddPct: 30, LossSubPct: 20},
		},
		Robustness:  robustness.DefaultConfig(),
		Sensitivity: sensitivity.DefaultConfig(),
		Optimizer:   optimizer.DefaultConfig(),
		Gate:        decision.DefaultThresholds(),
		Sufficiency: sufficiency.DefaultThresholds(),
		Ingest: IngestConfig{
			Dir:      "./data",
			Format:   "csv",
			Schedule: "0 30 22 * * MON-FRI",
			Timeout:  5 * time.Minute,
		},
		Log: logger.Config{Level: "info"},
	}
}

// Load reads a .env file if present, the YAML file at path (optional when
// empty) over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Storage.PostgresDSN = getEnv("POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.ClickHouseDSN = getEnv("CLICKHOUSE_DSN", c.Storage.ClickHouseDSN)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("LOG_PRETTY", c.Log.Pretty)
	c.Symbol = getEnv("SYMBOL", c.Symbol)
	c.RefSymbol = getEnv("REF_SYMBOL", c.RefSymbol)
}

// Validate checks symbols, simulation params and analysis settings.
func (c *Config) Validate() error {
	if c.Symbol == "" || c.RefSymbol == "" {
		return fmt.Errorf("%w: symbol and ref_symbol are required", ErrInvalidConfig)
	}
	params, err := c.Params()
	if err != nil {
		return err
	}
	if err := simulation.Validate(params); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.InjectionEvents(); err != nil {
		return err
	}
	if err := c.Robustness.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Sensitivity.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Optimizer.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Sufficiency.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Ingest.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("%w: ingest format %q", ErrInvalidConfig, c.Ingest.Format)
	}
	return nil
}

// Params converts the simulation section to domain params.
func (c *Config) Params() (domain.SimulationParams, error) {
	start, err := parseDate("simulation.start_date", c.Simulation.StartDate)
	if err != nil {
		return domain.SimulationParams{}, err
	}
	end, err := parseDate("simulation.end_date", c.Simulation.EndDate)
	if err != nil {
		return domain.SimulationParams{}, err
	}
	s := c.Simulation
	return domain.SimulationParams{
		InitialCapital: s.InitialCapital,
		StartDate:      start,
		EndDate:        end,
		FeeRatePct:     s.FeeRatePct,
		TierMode:       s.TierMode,
		Safe:           s.Safe,
		Offensive:      s.Offensive,
		Rebalance:      s.Rebalance,
	}.Clone(), nil
}

// InjectionEvents converts the injections section to domain events.
func (c *Config) InjectionEvents() ([]domain.InjectionEvent, error) {
	out := make([]domain.InjectionEvent, 0, len(c.Injections))
	for i, inj := range c.Injections {
		date, err := parseDate(fmt.Sprintf("injections[%d].date", i), inj.Date)
		if err != nil {
			return nil, err
		}
		kind := inj.Kind
		if kind == "" {
			kind = domain.InjectionCash
		}
		if kind != domain.InjectionCash && kind != domain.InjectionSeedCapital {
			return nil, fmt.Errorf("%w: injections[%d].kind %q", ErrInvalidConfig, i, inj.Kind)
		}
		out = append(out, domain.InjectionEvent{Date: date, Amount: inj.Amount, Kind: kind})
	}
	return out, nil
}

// IngestSymbols returns the symbols to ingest.
func (c *Config) IngestSymbols() []string {
	if len(c.Ingest.Symbols) > 0 {
		return c.Ingest.Symbols
	}
	if c.Symbol == c.RefSymbol {
		return []string{c.Symbol}
	}
	return []string{c.Symbol, c.RefSymbol}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", ErrInvalidConfig, field, value)
	}
	return t, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
