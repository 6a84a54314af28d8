package memory

import (
	"context"
	"errors"
	"testing"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

func makeTradeRecord(id, runID, exit string) *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:    id,
		RunID:      runID,
		EntryDate:  domain.MustParseDate("2024-01-02"),
		ExitDate:   domain.MustParseDate(exit),
		EntryPrice: 10,
		ExitPrice:  11,
		Quantity:   5,
		PnL:        5,
		PnLPct:     10,
		ExitKind:   domain.ExitKindTarget,
		Regime:     domain.RegimeSafe,
		DaysHeld:   2,
	}
}

func TestTradeRecordStore_InsertAndGet(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.TradeRecord{makeTradeRecord("trade1", "run1", "2024-01-04")}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PnL != 5 {
		t.Errorf("PnL mismatch: got %f, want %f", got.PnL, 5.0)
	}

	// returned copies must not alias stored rows
	got.PnL = 100
	again, _ := store.GetByID(ctx, "trade1")
	if again.PnL != 5 {
		t.Errorf("stored trade mutated through returned copy")
	}
}

func TestTradeRecordStore_DuplicateKey(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	trade := makeTradeRecord("trade1", "run1", "2024-01-04")
	if err := store.InsertBulk(ctx, []*domain.TradeRecord{trade}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.TradeRecord{trade})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeRecordStore_InsertBulkIntraBatchDuplicate(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	batch := []*domain.TradeRecord{
		makeTradeRecord("a", "run1", "2024-01-04"),
		makeTradeRecord("a", "run1", "2024-01-05"),
	}
	if err := store.InsertBulk(ctx, batch); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// atomic: nothing inserted
	if _, err := store.GetByID(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after failed batch, got %v", err)
	}
}

func TestTradeRecordStore_InvalidInput(t *testing.T) {
	store := NewTradeRecordStore()
	err := store.InsertBulk(context.Background(), []*domain.TradeRecord{{TradeID: "x"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeRecordStore_GetByRunIDOrdering(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	batch := []*domain.TradeRecord{
		makeTradeRecord("c", "run1", "2024-01-09"),
		makeTradeRecord("b", "run1", "2024-01-05"),
		makeTradeRecord("a", "run1", "2024-01-05"),
		makeTradeRecord("z", "run2", "2024-01-03"),
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(got))
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].TradeID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].TradeID, id)
		}
	}
}
