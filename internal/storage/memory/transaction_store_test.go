package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

func TestTransactionStore_InsertOnce(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	tx := &domain.Transaction{
		Hash:            "hash-1",
		Amount:          decimal.RequireFromString("12.345"),
		Confirmed:       true,
		FromAddress:     "TFrom",
		ToAddress:       "TTo",
		TransactionDate: 1704067200000,
	}

	if err := store.Insert(ctx, tx); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, tx); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	got, err := store.GetByHash(ctx, "hash-1")
	if err != nil {
		t.Fatalf("GetByHash failed: %v", err)
	}
	if !got.Amount.Equal(tx.Amount) || got.FromAddress != "TFrom" {
		t.Errorf("unexpected transaction: %+v", got)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 transaction, got %d", store.Len())
	}
}

func TestTransactionStore_GetByHashMissing(t *testing.T) {
	store := NewTransactionStore()

	if _, err := store.GetByHash(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
