package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

func TestRunSummaryStore_InsertAndGet(t *testing.T) {
	store := NewRunSummaryStore()
	ctx := context.Background()

	summary := &domain.RunSummary{
		RunID:       "run1",
		Kind:        domain.RunKindSimulation,
		Symbol:      "SOXL",
		RefSymbol:   "QQQ",
		ParamsJSON:  []byte(`{"initialCapital":10000}`),
		FinalEquity: 12000,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Insert(ctx, summary); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	summary.ParamsJSON[0] = 'X'

	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if string(got.ParamsJSON) != `{"initialCapital":10000}` {
		t.Errorf("stored params mutated: %s", got.ParamsJSON)
	}
	if got.FinalEquity != 12000 {
		t.Errorf("FinalEquity mismatch: got %f", got.FinalEquity)
	}

	if err := store.Insert(ctx, summary); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRunSummaryStore_GetByKind(t *testing.T) {
	store := NewRunSummaryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []*domain.RunSummary{
		{RunID: "r3", Kind: domain.RunKindRobustness, CreatedAt: base.Add(2 * time.Hour)},
		{RunID: "r1", Kind: domain.RunKindRobustness, CreatedAt: base},
		{RunID: "s1", Kind: domain.RunKindSimulation, CreatedAt: base},
		{RunID: "r2", Kind: domain.RunKindRobustness, CreatedAt: base},
	}
	for _, r := range rows {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	got, err := store.GetByKind(ctx, domain.RunKindRobustness)
	if err != nil {
		t.Fatalf("GetByKind failed: %v", err)
	}
	want := []string{"r1", "r2", "r3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].RunID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].RunID, id)
		}
	}
}
