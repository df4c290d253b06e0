package postgres

import (
	"context"
	"fmt"
	"time"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new transaction. Returns ErrDuplicateKey if hash exists.
func (s *TransactionStore) Insert(ctx context.Context, tx *domain.Transaction) (err error) {
	if tx == nil || tx.Hash == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_transaction", start, err) }()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (
			hash, amount, confirmed, reverted, from_address, to_address, transaction_date
		) VALUES ($1, $2::text::numeric, $3, $4, $5, $6, $7)
	`,
		tx.Hash,
		tx.Amount.String(),
		tx.Confirmed,
		tx.Reverted,
		tx.FromAddress,
		tx.ToAddress,
		tx.TransactionDate,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByHash retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		amount string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT hash, amount::text, confirmed, reverted, from_address, to_address, transaction_date
		FROM transactions
		WHERE hash = $1
	`, hash).Scan(
		&tx.Hash,
		&amount,
		&tx.Confirmed,
		&tx.Reverted,
		&tx.FromAddress,
		&tx.ToAddress,
		&tx.TransactionDate,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by hash: %w", err)
	}

	if tx.Amount, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	return &tx, nil
}
