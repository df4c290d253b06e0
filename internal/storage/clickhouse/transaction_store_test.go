package clickhouse_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
	"tronscan-crawler/internal/storage/clickhouse"
)

func TestTransactionStore_InsertAndGetByHash(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := clickhouse.NewTransactionStore(conn)

	tx := &domain.Transaction{
		Hash:            "ch-hash-1",
		Amount:          decimal.RequireFromString("1234567890123456789012.5"),
		Confirmed:       true,
		Reverted:        false,
		FromAddress:     "TFrom",
		ToAddress:       "TTo",
		TransactionDate: 1700000000000,
	}
	require.NoError(t, store.Insert(ctx, tx))

	got, err := store.GetByHash(ctx, "ch-hash-1")
	require.NoError(t, err)

	assert.True(t, tx.Amount.Equal(got.Amount), "amount: got %s", got.Amount)
	assert.True(t, got.Confirmed)
	assert.Equal(t, tx.FromAddress, got.FromAddress)
	assert.Equal(t, tx.TransactionDate, got.TransactionDate)
}

func TestTransactionStore_InsertDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := clickhouse.NewTransactionStore(conn)

	tx := &domain.Transaction{Hash: "ch-dup", Amount: decimal.NewFromInt(1)}
	require.NoError(t, store.Insert(ctx, tx))
	assert.ErrorIs(t, store.Insert(ctx, tx), storage.ErrDuplicateKey)
}

func TestTransactionStore_GetByHashMissing(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := clickhouse.NewTransactionStore(conn).GetByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
