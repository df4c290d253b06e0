package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if id exists.
// MergeTree does not enforce keys, so the id is checked before insert.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.WalletSnapshot) (err error) {
	if snap == nil || snap.ID == "" || snap.WalletAddress == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("insert_snapshot", start, err) }()

	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM wallet_snapshots WHERE id = ?`, snap.ID).Scan(&count); err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	tokens, err := json.Marshal(snap.Tokens)
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO wallet_snapshots (id, wallet_address, tokens, amount_in_usd, tokens_count, loaded_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	if err := batch.Append(
		snap.ID,
		snap.WalletAddress,
		string(tokens),
		snap.AmountInUSD,
		uint32(snap.TokensCount),
		snap.LoadedAt,
	); err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert wallet snapshot: %w", err)
	}
	return nil
}

// GetByWallet retrieves all snapshots of a wallet, ordered by loaded_at ASC.
func (s *SnapshotStore) GetByWallet(ctx context.Context, address string) ([]*domain.WalletSnapshot, error) {
	query := `
		SELECT id, wallet_address, tokens, amount_in_usd, tokens_count, loaded_at
		FROM wallet_snapshots
		WHERE wallet_address = ?
		ORDER BY loaded_at ASC, id ASC
	`

	rows, err := s.conn.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by wallet: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

func scanSnapshots(rows chRows) ([]*domain.WalletSnapshot, error) {
	var snapshots []*domain.WalletSnapshot

	for rows.Next() {
		var (
			snap   domain.WalletSnapshot
			tokens string
			amount decimal.Decimal
			count  uint32
		)
		if err := rows.Scan(&snap.ID, &snap.WalletAddress, &tokens, &amount, &count, &snap.LoadedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		if err := json.Unmarshal([]byte(tokens), &snap.Tokens); err != nil {
			return nil, fmt.Errorf("decode snapshot tokens: %w", err)
		}
		snap.AmountInUSD = amount
		snap.TokensCount = int(count)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return snapshots, nil
}
