package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Ingester appends new bars for symbols.
type Ingester interface {
	IngestAll(ctx context.Context, symbols []string) (map[string]int, error)
}

// IngestJob refreshes the stored price series of a symbol list.
type IngestJob struct {
	ctx      context.Context
	ingester Ingester
	symbols  []string
	timeout  time.Duration
	log      zerolog.Logger
	onDone   func(counts map[string]int, err error)
}

// IngestJobConfig holds configuration for the ingest job
type IngestJobConfig struct {
	Ctx      context.Context
	Ingester Ingester
	Symbols  []string
	Timeout  time.Duration // per run; 0 means no limit
	Log      zerolog.Logger
	OnDone   func(counts map[string]int, err error)
}

// NewIngestJob creates a new ingest job
func NewIngestJob(cfg IngestJobConfig) *IngestJob {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return &IngestJob{
		ctx:      ctx,
		ingester: cfg.Ingester,
		symbols:  cfg.Symbols,
		timeout:  cfg.Timeout,
		log:      cfg.Log.With().Str("job", "ingest").Logger(),
		onDone:   cfg.OnDone,
	}
}

// Name returns the job name
func (j *IngestJob) Name() string {
	return "ingest"
}

// Run ingests every symbol once.
func (j *IngestJob) Run() error {
	ctx := j.ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	start := time.Now()
	counts, err := j.ingester.IngestAll(ctx, j.symbols)
	if j.onDone != nil {
		j.onDone(counts, err)
	}
	if err != nil {
		return fmt.Errorf("ingest %v: %w", j.symbols, err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	j.log.Info().
		Int("symbols", len(counts)).
		Int("bars", total).
		Dur("took", time.Since(start)).
		Msg("ingestion finished")
	return nil
}
