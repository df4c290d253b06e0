package storage

import (
	"context"

	"tronscan-crawler/internal/domain"
)

// ContractStore provides access to contracts storage.
type ContractStore interface {
	// Upsert creates or replaces the contract keyed by address.
	Upsert(ctx context.Context, c *domain.Contract) error

	// GetByAddress retrieves a contract. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Contract, error)

	// ListAddresses returns every stored contract address.
	ListAddresses(ctx context.Context) ([]string, error)
}

// WalletStore provides access to wallets storage.
type WalletStore interface {
	// Create adds a new wallet. Returns ErrDuplicateKey if address exists.
	Create(ctx context.Context, w *domain.Wallet) error

	// EnsureExists creates the wallet if absent. Existing rows are left untouched.
	// Reports whether a row was created.
	EnsureExists(ctx context.Context, address string, seenAt int64) (bool, error)

	// GetByAddress retrieves a wallet. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Wallet, error)

	// SetCurrentSnapshot repoints the wallet's current snapshot.
	// The pointer only moves to a snapshot loaded at or after the current one;
	// an older snapshot is a no-op. Returns ErrNotFound if the wallet does not exist.
	SetCurrentSnapshot(ctx context.Context, address, snapshotID string, loadedAt int64) error

	// ListAddresses returns every stored wallet address.
	ListAddresses(ctx context.Context) ([]string, error)
}

// SnapshotStore provides access to wallet_snapshots storage (append-only).
type SnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, s *domain.WalletSnapshot) error

	// GetByWallet retrieves all snapshots of a wallet, ordered by loaded_at ASC.
	GetByWallet(ctx context.Context, address string) ([]*domain.WalletSnapshot, error)
}

// TransactionStore provides access to transactions storage (insert-once).
type TransactionStore interface {
	// Insert adds a new transaction. Returns ErrDuplicateKey if hash exists.
	Insert(ctx context.Context, tx *domain.Transaction) error

	// GetByHash retrieves a transaction. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, hash string) (*domain.Transaction, error)
}
