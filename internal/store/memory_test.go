package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/model"
	"github.com/CPD9/hodl-portfolio-tracker-sub000/internal/store"
)

func TestMemoryStore_PositionLifecycle(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	if _, err := ms.GetPosition(ctx, "user1", "AAPL", model.AssetStock); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	pos := &model.Position{
		UserID:        "user1",
		Symbol:        "AAPL",
		AssetType:     model.AssetStock,
		Quantity:      decimal.NewFromInt(10),
		AvgPrice:      decimal.RequireFromString("100.10"),
		TotalInvested: decimal.NewFromInt(1001),
		LastUpdated:   time.Now().UTC(),
	}
	if err := ms.UpsertPosition(ctx, pos); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Mutating the caller's struct must not affect the stored copy.
	pos.Quantity = decimal.NewFromInt(999)

	got, err := ms.GetPosition(ctx, "user1", "AAPL", model.AssetStock)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Quantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("stored position mutated externally: %s", got.Quantity)
	}

	// Same symbol under a different asset class is a distinct position.
	if _, err := ms.GetPosition(ctx, "user1", "AAPL", model.AssetCrypto); !errors.Is(err, store.ErrNotFound) {
		t.Error("asset class must be part of the position key")
	}

	if err := ms.DeletePosition(ctx, "user1", "AAPL", model.AssetStock); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ms.DeletePosition(ctx, "user1", "AAPL", model.AssetStock); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete: expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ListPositionsFiltersByUser(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	ms.UpsertPosition(ctx, &model.Position{UserID: "user1", Symbol: "AAPL", AssetType: model.AssetStock, Quantity: decimal.NewFromInt(1)})
	ms.UpsertPosition(ctx, &model.Position{UserID: "user1", Symbol: "BTC", AssetType: model.AssetCrypto, Quantity: decimal.NewFromInt(1)})
	ms.UpsertPosition(ctx, &model.Position{UserID: "user2", Symbol: "AAPL", AssetType: model.AssetStock, Quantity: decimal.NewFromInt(1)})

	positions, err := ms.ListPositions(ctx, "user1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(positions) != 2 {
		t.Errorf("expected 2 positions for user1, got %d", len(positions))
	}
}

func TestMemoryStore_TransactionsNewestFirstWithLimit(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ms.InsertTransaction(ctx, &model.TransactionRecord{
			ID:     fmt.Sprintf("tx-%d", i),
			UserID: "user1",
		})
	}
	ms.InsertTransaction(ctx, &model.TransactionRecord{ID: "other", UserID: "user2"})

	records, err := ms.ListTransactions(ctx, "user1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "tx-4" {
		t.Errorf("expected newest first, got %s", records[0].ID)
	}

	all, _ := ms.ListTransactions(ctx, "user1", 0)
	if len(all) != 5 {
		t.Errorf("limit 0 means no limit, got %d", len(all))
	}
}

func TestMemoryStore_BalanceRoundTrip(t *testing.T) {
	ms := store.NewMemoryStore()
	ctx := context.Background()

	if _, err := ms.GetBalance(ctx, "user1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	b := model.NewAccountBalance("user1")
	if err := ms.UpsertBalance(ctx, b); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := ms.GetBalance(ctx, "user1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CashBalance.Equal(model.DefaultEndowment) {
		t.Errorf("expected endowment %s, got %s", model.DefaultEndowment, got.CashBalance)
	}
}
