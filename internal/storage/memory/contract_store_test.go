package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

func TestContractStore_UpsertAndGet(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	contract := &domain.Contract{
		Address:        "TContract1",
		Name:           "Token",
		CreatorAddress: "TCreator1",
		Balance:        decimal.NewFromInt(100),
		Token:          []byte(`{"tokenAbbr":"TKN"}`),
		UpdatedAt:      1704067200000,
	}

	if err := store.Upsert(ctx, contract); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	result, err := store.GetByAddress(ctx, "TContract1")
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}

	if result.Name != "Token" {
		t.Errorf("Name mismatch: got %s, want Token", result.Name)
	}
	if !result.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Balance mismatch: got %s, want 100", result.Balance)
	}

	// Mutating the input must not leak into the store.
	contract.Token[0] = 'x'
	again, _ := store.GetByAddress(ctx, "TContract1")
	if again.Token[0] != '{' {
		t.Error("stored token info was aliased to caller slice")
	}
}

func TestContractStore_UpsertIsIdempotent(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	contract := &domain.Contract{Address: "TContract1", Name: "Token"}

	for i := 0; i < 2; i++ {
		if err := store.Upsert(ctx, contract); err != nil {
			t.Fatalf("Upsert %d failed: %v", i, err)
		}
	}

	if store.Len() != 1 {
		t.Errorf("expected 1 contract, got %d", store.Len())
	}

	updated := &domain.Contract{Address: "TContract1", Name: "Renamed"}
	if err := store.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	result, _ := store.GetByAddress(ctx, "TContract1")
	if result.Name != "Renamed" {
		t.Errorf("expected upsert to overwrite name, got %s", result.Name)
	}
}

func TestContractStore_NotFoundAndInvalid(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	if _, err := store.GetByAddress(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Upsert(ctx, &domain.Contract{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestContractStore_ListAddresses(t *testing.T) {
	store := NewContractStore()
	ctx := context.Background()

	for _, addr := range []string{"TC", "TA", "TB"} {
		if err := store.Upsert(ctx, &domain.Contract{Address: addr}); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	addresses, err := store.ListAddresses(ctx)
	if err != nil {
		t.Fatalf("ListAddresses failed: %v", err)
	}

	want := []string{"TA", "TB", "TC"}
	if len(addresses) != len(want) {
		t.Fatalf("expected %d addresses, got %d", len(want), len(addresses))
	}
	for i := range want {
		if addresses[i] != want[i] {
			t.Errorf("address[%d]: got %s, want %s", i, addresses[i], want[i])
		}
	}
}
