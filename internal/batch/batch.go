// Package batch executes independent jobs in fixed-size batches on a bounded
// worker pool, reporting progress between batches.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidConfig is returned for a non-positive batch size or worker count.
var ErrInvalidConfig = errors.New("invalid batch config")

// ProgressFunc receives the number of completed jobs after each batch.
type ProgressFunc func(completed, total int)

// JobFunc computes the result of job i. Jobs must not share mutable state.
type JobFunc[T any] func(ctx context.Context, i int) (T, error)

// Config controls batching.
type Config struct {
	BatchSize int `yaml:"batch_size"`
	Workers   int `yaml:"workers"`
}

// DefaultConfig returns batches of 50 on one worker per CPU.
func DefaultConfig() Config {
	return Config{
		BatchSize: 50,
		Workers:   runtime.GOMAXPROCS(0),
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Run executes jobs 0..total-1 and returns their results in job order.
// The context is checked between batches only; a batch in flight runs to
// completion unless one of its jobs fails.
func Run[T any](ctx context.Context, cfg Config, total int, job JobFunc[T], progress ProgressFunc) ([]T, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	results := make([]T, total)

	for start := 0; start < total; start += cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+cfg.BatchSize, total)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := job(gctx, i)
				if err != nil {
					return fmt.Errorf("job %d: %w", i, err)
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if progress != nil {
			progress(end, total)
		}
	}

	return results, nil
}
