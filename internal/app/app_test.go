package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regime-tier-lab/internal/config"
	"regime-tier-lab/internal/observability"
	"regime-tier-lab/internal/storage"
	"regime-tier-lab/internal/storage/memory"
)

func writeCSV(t *testing.T, dir, symbol string, days int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	for i := 0; i < days; i++ {
		c := 100 + float64(i)
		fmt.Fprintf(&b, "2024-01-%02d,%.2f,%.2f,%.2f,%.2f,1000\n", i+1, c, c, c, c)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol+".csv"), []byte(b.String()), 0o644))
}

func TestOpenStores_MemoryFallback(t *testing.T) {
	s, err := OpenStores(context.Background(), config.StorageConfig{}, nil, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Memory)
	assert.IsType(t, &memory.PriceBarStore{}, s.Bars)
	assert.IsType(t, &memory.RunSummaryStore{}, s.Runs)
	assert.IsType(t, &memory.TradeRecordStore{}, s.Trades)
}

func TestStores_Seed(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "SOXL", 5)
	writeCSV(t, dir, "QQQ", 3)

	cfg := config.Default()
	cfg.Symbol, cfg.RefSymbol = "SOXL", "QQQ"
	cfg.Ingest.Dir = dir

	ctx := context.Background()
	s, err := OpenStores(ctx, cfg.Storage, nil, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	m := observability.NewMetrics("seed_test", prometheus.NewRegistry())
	require.NoError(t, s.Seed(ctx, cfg, m, zerolog.Nop()))

	symbols, err := s.Bars.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"QQQ", "SOXL"}, symbols)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.BarsIngested.WithLabelValues("SOXL")))
}

func TestStores_SeedMissingFile(t *testing.T) {
	cfg := config.Default()
	cfg.Ingest.Dir = t.TempDir()

	s, err := OpenStores(context.Background(), cfg.Storage, nil, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.Seed(context.Background(), cfg, nil, zerolog.Nop()))
}

func TestInstrumentedStores_RecordQueries(t *testing.T) {
	ctx := context.Background()
	m := observability.NewMetrics("db_test", prometheus.NewRegistry())

	runs := instrumentRuns(memory.NewRunSummaryStore(), m)
	_, err := runs.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues(dbPostgres, "get_run")))

	trades := instrumentTrades(memory.NewTradeRecordStore(), m)
	_, err = trades.GetByRunID(ctx, "run-1")
	require.NoError(t, err)

	bars := instrumentBars(memory.NewPriceBarStore(), m)
	err = bars.InsertBulk(ctx, "", nil)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues(dbClickHouse, "insert_bars")))

	assert.Equal(t, 3, testutil.CollectAndCount(m.DBQueryDuration))
}

func TestInstrument_NilMetricsPassesThrough(t *testing.T) {
	next := memory.NewPriceBarStore()
	assert.Same(t, next, instrumentBars(next, nil))
}
