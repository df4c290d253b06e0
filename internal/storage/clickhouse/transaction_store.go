package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// TransactionStore implements storage.TransactionStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by hash, so a racing duplicate
// insert collapses on merge; reads use FINAL.
type TransactionStore struct {
	conn *Conn
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(conn *Conn) *TransactionStore {
	return &TransactionStore{conn: conn}
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

	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM transactions FINAL WHERE hash = ?`, tx.Hash).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO transactions (
			hash, amount, confirmed, reverted, from_address, to_address, transaction_date
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		tx.Hash,
		tx.Amount,
		tx.Confirmed,
		tx.Reverted,
		tx.FromAddress,
		tx.ToAddress,
		tx.TransactionDate,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByHash retrieves a transaction. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	query := `
		SELECT hash, amount, confirmed, reverted, from_address, to_address, transaction_date
		FROM transactions FINAL
		WHERE hash = ?
		LIMIT 1
	`

	var tx domain.Transaction
	err := s.conn.QueryRow(ctx, query, hash).Scan(
		&tx.Hash,
		&tx.Amount,
		&tx.Confirmed,
		&tx.Reverted,
		&tx.FromAddress,
		&tx.ToAddress,
		&tx.TransactionDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by hash: %w", err)
	}
	return &tx, nil
}
