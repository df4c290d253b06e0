package domain

import "github.com/shopspring/decimal"

// Transaction represents a transfer between two addresses.
// Corresponds to transactions table. Insert-once by Hash.
type Transaction struct {
	Hash            string          // PK
	Amount          decimal.Decimal // raw transfer amount
	Confirmed       bool            // confirmed on chain
	Reverted        bool            // execution reverted
	FromAddress     string          // sender
	ToAddress       string          // receiver
	TransactionDate int64           // block timestamp (ms)
}
