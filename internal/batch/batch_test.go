package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ResultsInJobOrder(t *testing.T) {
	cfg := Config{BatchSize: 4, Workers: 3}

	got, err := Run(context.Background(), cfg, 10, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	}, nil)
	require.NoError(t, err)

	want := []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}
	assert.Equal(t, want, got)
}

func TestRun_ProgressBetweenBatches(t *testing.T) {
	cfg := Config{BatchSize: 10, Workers: 2}

	var calls [][2]int
	_, err := Run(context.Background(), cfg, 25, func(_ context.Context, i int) (struct{}, error) {
		return struct{}{}, nil
	}, func(completed, total int) {
		calls = append(calls, [2]int{completed, total})
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, calls)
}

func TestRun_JobError(t *testing.T) {
	errBoom := errors.New("boom")
	cfg := Config{BatchSize: 5, Workers: 5}

	var ran atomic.Int32
	_, err := Run(context.Background(), cfg, 20, func(_ context.Context, i int) (int, error) {
		ran.Add(1)
		if i == 3 {
			return 0, errBoom
		}
		return i, nil
	}, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.LessOrEqual(t, ran.Load(), int32(5), "later batches must not start")
}

func TestRun_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{BatchSize: 2, Workers: 1}

	var ran atomic.Int32
	_, err := Run(ctx, cfg, 10, func(_ context.Context, i int) (int, error) {
		ran.Add(1)
		return i, nil
	}, func(completed, total int) {
		if completed == 4 {
			cancel()
		}
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(4), ran.Load())
}

func TestRun_Empty(t *testing.T) {
	got, err := Run(context.Background(), DefaultConfig(), 0, func(_ context.Context, i int) (int, error) {
		return i, nil
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.True(t, errors.Is(Config{BatchSize: 0, Workers: 1}.Validate(), ErrInvalidConfig))
	assert.True(t, errors.Is(Config{BatchSize: 1, Workers: 0}.Validate(), ErrInvalidConfig))
}
