package postgres_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
	"tronscan-crawler/internal/storage/postgres"
)

func TestWalletStore_EnsureExists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	created, err := store.EnsureExists(ctx, "TWallet1", 1000)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.EnsureExists(ctx, "TWallet1", 2000)
	require.NoError(t, err)
	assert.False(t, created)

	wallet, err := store.GetByAddress(ctx, "TWallet1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), wallet.LastUpdate, "existing row must not be overwritten")
	assert.Empty(t, wallet.CurrentSnapshotID)

	err = store.Create(ctx, &domain.Wallet{Address: "TWallet1", LastUpdate: 3})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestWalletStore_SnapshotChain(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	wallets := postgres.NewWalletStore(pool)
	snapshots := postgres.NewSnapshotStore(pool)
	ctx := context.Background()

	_, err := wallets.EnsureExists(ctx, "TWalletChain", 1)
	require.NoError(t, err)

	const n = 3
	var lastID string
	for i := 0; i < n; i++ {
		snap := &domain.WalletSnapshot{
			ID:            uuid.NewString(),
			WalletAddress: "TWalletChain",
			Tokens: map[string]domain.WalletToken{
				"trx": {TokenAbbr: "trx", Balance: fmt.Sprint(i), TokenValueInUSD: decimal.NewFromInt(int64(i))},
			},
			AmountInUSD: decimal.NewFromInt(int64(i)),
			TokensCount: 1,
			LoadedAt:    int64(1000 + i),
		}
		require.NoError(t, snapshots.Insert(ctx, snap))
		require.NoError(t, wallets.SetCurrentSnapshot(ctx, "TWalletChain", snap.ID, snap.LoadedAt))
		lastID = snap.ID
	}

	chain, err := snapshots.GetByWallet(ctx, "TWalletChain")
	require.NoError(t, err)
	require.Len(t, chain, n)
	assert.Equal(t, lastID, chain[n-1].ID)
	assert.Equal(t, "2", chain[n-1].Tokens["trx"].Balance)
	assert.True(t, chain[n-1].AmountInUSD.Equal(decimal.NewFromInt(2)))

	wallet, err := wallets.GetByAddress(ctx, "TWalletChain")
	require.NoError(t, err)
	assert.Equal(t, lastID, wallet.CurrentSnapshotID)
	assert.Equal(t, int64(1000+n-1), wallet.CurrentSnapshotAt)
}

func TestWalletStore_SetCurrentSnapshotKeepsNewest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	_, err := store.EnsureExists(ctx, "TWalletRace", 1)
	require.NoError(t, err)

	newer, older := uuid.NewString(), uuid.NewString()
	require.NoError(t, store.SetCurrentSnapshot(ctx, "TWalletRace", newer, 2000))
	require.NoError(t, store.SetCurrentSnapshot(ctx, "TWalletRace", older, 1500), "stale repoint is a no-op")

	wallet, err := store.GetByAddress(ctx, "TWalletRace")
	require.NoError(t, err)
	assert.Equal(t, newer, wallet.CurrentSnapshotID)
	assert.Equal(t, int64(2000), wallet.CurrentSnapshotAt)
}

func TestWalletStore_SetCurrentSnapshotErrors(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	err := store.SetCurrentSnapshot(ctx, "missing", uuid.NewString(), 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.SetCurrentSnapshot(ctx, "missing", "not-a-uuid", 1)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestWalletStore_ListAddresses(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewWalletStore(pool)
	ctx := context.Background()

	for _, addr := range []string{"TW3", "TW1", "TW2"} {
		_, err := store.EnsureExists(ctx, addr, 1)
		require.NoError(t, err)
	}

	addresses, err := store.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"TW1", "TW2", "TW3"}, addresses)
}
