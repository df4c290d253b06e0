package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tronscan-crawler/internal/domain"
	"tronscan-crawler/internal/storage"
)

// ContractStore implements storage.ContractStore using PostgreSQL.
type ContractStore struct {
	pool *Pool
}

// NewContractStore creates a new ContractStore.
func NewContractStore(pool *Pool) *ContractStore {
	return &ContractStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ContractStore = (*ContractStore)(nil)

// Upsert creates or replaces the contract keyed by address.
func (s *ContractStore) Upsert(ctx context.Context, c *domain.Contract) (err error) {
	if c == nil || c.Address == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() { observe("upsert_contract", start, err) }()

	query := `
		INSERT INTO contracts (
			address, name, description, token, creator_address, creator_is_contract,
			vip, balance, balance_in_usd, balance_with_tokens, trx_count, date_created, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8::text::numeric, $9::text::numeric, $10::text::numeric, $11, $12, $13
		)
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			token = EXCLUDED.token,
			creator_address = EXCLUDED.creator_address,
			creator_is_contract = EXCLUDED.creator_is_contract,
			vip = EXCLUDED.vip,
			balance = EXCLUDED.balance,
			balance_in_usd = EXCLUDED.balance_in_usd,
			balance_with_tokens = EXCLUDED.balance_with_tokens,
			trx_count = EXCLUDED.trx_count,
			date_created = EXCLUDED.date_created,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.pool.Exec(ctx, query,
		c.Address,
		c.Name,
		c.Description,
		c.Token,
		c.CreatorAddress,
		c.CreatorIsContract,
		c.VIP,
		c.Balance.String(),
		c.BalanceInUSD.String(),
		c.BalanceWithTokens.String(),
		c.TrxCount,
		c.DateCreated,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert contract: %w", err)
	}
	return nil
}

// GetByAddress retrieves a contract. Returns ErrNotFound if not exists.
func (s *ContractStore) GetByAddress(ctx context.Context, address string) (*domain.Contract, error) {
	query := `
		SELECT address, name, description, token, creator_address, creator_is_contract,
			vip, balance::text, balance_in_usd::text, balance_with_tokens::text,
			trx_count, date_created, updated_at
		FROM contracts
		WHERE address = $1
	`

	c, err := scanContract(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get contract by address: %w", err)
	}
	return c, nil
}

// ListAddresses returns every stored contract address, sorted.
func (s *ContractStore) ListAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT address FROM contracts ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("list contract addresses: %w", err)
	}
	return scanAddresses(rows)
}

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var (
		c                                    domain.Contract
		balance, balanceUSD, balanceWithToks string
	)

	err := row.Scan(
		&c.Address,
		&c.Name,
		&c.Description,
		&c.Token,
		&c.CreatorAddress,
		&c.CreatorIsContract,
		&c.VIP,
		&balance,
		&balanceUSD,
		&balanceWithToks,
		&c.TrxCount,
		&c.DateCreated,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.Balance, err = parseNumeric(balance); err != nil {
		return nil, err
	}
	if c.BalanceInUSD, err = parseNumeric(balanceUSD); err != nil {
		return nil, err
	}
	if c.BalanceWithTokens, err = parseNumeric(balanceWithToks); err != nil {
		return nil, err
	}
	return &c, nil
}
