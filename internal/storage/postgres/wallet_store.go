package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// Create adds a new wallet. Returns ErrDuplicateKey if address exists.
func (s *WalletStore) Create(ctx context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" {
		return storage.ErrInvalidInput
	}

	var snapshotID *uuid.UUID
	if w.CurrentSnapshotID != "" {
		id, err := uuid.Parse(w.CurrentSnapshotID)
		if err != nil {
			return fmt.Errorf("%w: snapshot id: %v", storage.ErrInvalidInput, err)
		}
		snapshotID = &id
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (address, last_update, current_snapshot_id, current_snapshot_at)
		VALUES ($1, $2, $3, NULLIF($4, 0))
	`, w.Address, w.LastUpdate, snapshotID, w.CurrentSnapshotAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// EnsureExists creates the wallet if absent. Existing rows are left untouched.
func (s *WalletStore) EnsureExists(ctx context.Context, address string, seenAt int64) (created bool, err error) {
	if address == "" {
		return false, storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("ensure_wallet", start, err) }()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO wallets (address, last_update)
		VALUES ($1, $2)
		ON CONFLICT (address) DO NOTHING
	`, address, seenAt)
	if err != nil {
		return false, fmt.Errorf("ensure wallet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
func (s *WalletStore) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	var w domain.Wallet
	err := s.pool.QueryRow(ctx, `
		SELECT address, last_update,
			COALESCE(current_snapshot_id::text, ''), COALESCE(current_snapshot_at, 0)
		FROM wallets
		WHERE address = $1
	`, address).Scan(&w.Address, &w.LastUpdate, &w.CurrentSnapshotID, &w.CurrentSnapshotAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet by address: %w", err)
	}
	return &w, nil
}

// SetCurrentSnapshot repoints the wallet's current snapshot unless a newer
// one is already current.
func (s *WalletStore) SetCurrentSnapshot(ctx context.Context, address, snapshotID string, loadedAt int64) (err error) {
	id, err := uuid.Parse(snapshotID)
	if err != nil {
		return fmt.Errorf("%w: snapshot id: %v", storage.ErrInvalidInput, err)
	}
	start := time.Now()
	defer func() { observe("set_current_snapshot", start, err) }()

	tag, err := s.pool.Exec(ctx, `
		UPDATE wallets
		SET current_snapshot_id = $2, current_snapshot_at = $3
		WHERE address = $1
		  AND (current_snapshot_at IS NULL OR current_snapshot_at <= $3)
	`, address, id, loadedAt)
	if err != nil {
		return fmt.Errorf("set current snapshot: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows: either the wallet is missing or a newer snapshot is current.
	var exists bool
	if err = s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM wallets WHERE address = $1)
	`, address).Scan(&exists); err != nil {
		return fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return nil
}

// ListAddresses returns every stored wallet address, sorted.
func (s *WalletStore) ListAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM wallets ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list wallet addresses: %w", err)
	}
	return scanAddresses(rows)
}
