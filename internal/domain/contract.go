package domain

import "github.com/shopspring/decimal"

// Contract represents a smart contract profile discovered by the crawler.
// Corresponds to contracts table in PostgreSQL. Upserted by Address.
type Contract struct {
	Address           string          // PK, base58 ledger address
	Name              string          // contract name
	Description       string          // free-form description
	Token             []byte          // raw token metadata JSON (nullable)
	CreatorAddress    string          // deployer address (empty if unknown)
	CreatorIsContract bool            // deployer is itself a contract
	VIP               bool            // explorer "vip" flag
	Balance           decimal.Decimal // native balance
	BalanceInUSD      decimal.Decimal // native balance in USD
	BalanceWithTokens decimal.Decimal // native + token balance in USD
	TrxCount          int64           // transaction count reported by explorer
	DateCreated       int64           // contract creation timestamp (ms)
	UpdatedAt         int64           // last upsert timestamp (ms)
}
