package domain

import "github.com/shopspring/decimal"

// Wallet represents a non-contract address seen by the crawler.
// Corresponds to wallets table in PostgreSQL.
type Wallet struct {
	Address           string // PK, base58 ledger address
	LastUpdate        int64  // first sighting timestamp (ms)
	CurrentSnapshotID string // latest WalletSnapshot.ID (empty until first snapshot)
	CurrentSnapshotAt int64  // LoadedAt of the current snapshot (0 until first snapshot)
}

// WalletSnapshot is an append-only record of a wallet's token holdings.
// Corresponds to wallet_snapshots table. Immutable once created.
type WalletSnapshot struct {
	ID            string                 // uuid
	WalletAddress string                 // FK to wallets
	Tokens        map[string]WalletToken // keyed by token abbreviation
	AmountInUSD   decimal.Decimal        // sum of token values in USD
	TokensCount   int                    // number of token entries returned
	LoadedAt      int64                  // capture timestamp (ms)
}

// WalletToken is a single token holding as reported by the explorer.
type WalletToken struct {
	TokenID         string          `json:"token_id"`
	TokenAbbr       string          `json:"token_abbr"`
	TokenName       string          `json:"token_name"`
	TokenType       int             `json:"token_type"`
	TokenDecimal    int             `json:"token_decimal"`
	TokenURL        string          `json:"token_url,omitempty"`
	Balance         string          `json:"balance"`
	TokenValue      string          `json:"token_value"`
	TokenPrice      string          `json:"token_price"`
	TokenPriceInUSD decimal.Decimal `json:"token_price_in_usd"`
	TokenValueInUSD decimal.Decimal `json:"token_value_in_usd"`
	Level           int             `json:"level"`
	VIP             bool            `json:"vip"`
}
