package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if id exists.
// The owning wallet must already exist.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.WalletSnapshot) (err error) {
	if snap == nil || snap.WalletAddress == "" {
		return storage.ErrInvalidInput
	}
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		return fmt.Errorf("%w: snapshot id: %v", storage.ErrInvalidInput, err)
	}
	start := time.Now()
	defer func() { observe("insert_snapshot", start, err) }()

	tokens := snap.Tokens
	if tokens == nil {
		tokens = map[string]domain.WalletToken{}
	}
	payload, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO wallet_snapshots (id, wallet_address, tokens, amount_in_usd, tokens_count, loaded_at)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6)
	`, id, snap.WalletAddress, payload, snap.AmountInUSD.String(), snap.TokensCount, snap.LoadedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert wallet snapshot: %w", err)
	}
	return nil
}

// GetByWallet retrieves all snapshots of a wallet, ordered by loaded_at ASC.
func (s *SnapshotStore) GetByWallet(ctx context.Context, address string) ([]*domain.WalletSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, wallet_address, tokens, amount_in_usd::text, tokens_count, loaded_at
		FROM wallet_snapshots
		WHERE wallet_address = $1
		ORDER BY loaded_at ASC, id ASC
	`, address)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by wallet: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.WalletSnapshot
	for rows.Next() {
		var (
			snap   domain.WalletSnapshot
			tokens []byte
			amount string
		)
		if err := rows.Scan(&snap.ID, &snap.WalletAddress, &tokens, &amount, &snap.TokensCount, &snap.LoadedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if err := json.Unmarshal(tokens, &snap.Tokens); err != nil {
			return nil, fmt.Errorf("decode snapshot tokens: %w", err)
		}
		if snap.AmountInUSD, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}
