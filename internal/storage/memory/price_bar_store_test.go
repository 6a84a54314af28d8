package memory

import (
	"context"
	"errors"
	"testing"

	"regime-tier-lab/internal/domain"
	"regime-tier-lab/internal/storage"
)

func bar(date string, close float64) domain.PriceBar {
	return domain.PriceBar{Date: domain.MustParseDate(date), Open: close, High: close, Low: close, Close: close}
}

func TestPriceBarStore_InsertAndRange(t *testing.T) {
	store := NewPriceBarStore()
	ctx := context.Background()

	bars := []domain.PriceBar{
		bar("2024-01-04", 12),
		bar("2024-01-02", 10),
		bar("2024-01-03", 11),
	}
	if err := store.InsertBulk(ctx, "SOXL", bars); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	all, err := store.GetBySymbol(ctx, "SOXL")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(all) != 3 || all[0].Close != 10 || all[2].Close != 12 {
		t.Errorf("unexpected ordering: %+v", all)
	}

	ranged, err := store.GetByDateRange(ctx, "SOXL", domain.MustParseDate("2024-01-03"), domain.MustParseDate("2024-01-04"))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(ranged) != 2 || ranged[0].Close != 11 {
		t.Errorf("unexpected range result: %+v", ranged)
	}

	none, _ := store.GetBySymbol(ctx, "QQQ")
	if len(none) != 0 {
		t.Errorf("expected no bars for unknown symbol, got %d", len(none))
	}
}

func TestPriceBarStore_Duplicates(t *testing.T) {
	store := NewPriceBarStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "QQQ", []domain.PriceBar{bar("2024-01-02", 1)}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "QQQ", []domain.PriceBar{bar("2024-01-02", 2)}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
	// same date under another symbol is fine
	if err := store.InsertBulk(ctx, "SOXL", []domain.PriceBar{bar("2024-01-02", 2)}); err != nil {
		t.Errorf("unexpected error for other symbol: %v", err)
	}
	if err := store.InsertBulk(ctx, "", []domain.PriceBar{bar("2024-01-02", 2)}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}

	symbols, _ := store.Symbols(ctx)
	if len(symbols) != 2 || symbols[0] != "QQQ" || symbols[1] != "SOXL" {
		t.Errorf("unexpected symbols %v", symbols)
	}
}
