package tronscan

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"tronscan-crawler/internal/domain"
)

// Contract is a contract profile returned by the contract endpoint.
type Contract struct {
	Address           string
	Name              string
	Description       string
	Creator           Creator
	TokenInfo         json.RawMessage
	VIP               bool
	Balance           decimal.Decimal
	BalanceInUSD      decimal.Decimal
	BalanceWithTokens decimal.Decimal
	TrxCount          int64
	DateCreated       int64 // ms
}

// Creator identifies the address that deployed a contract.
type Creator struct {
	Address    string
	IsContract bool
}

// Record converts the profile into a storable contract record.
func (c *Contract) Record(address string, now int64) *domain.Contract {
	return &domain.Contract{
		Address:           address,
		Name:              c.Name,
		Description:       c.Description,
		Token:             c.TokenInfo,
		CreatorAddress:    c.Creator.Address,
		CreatorIsContract: c.Creator.IsContract,
		VIP:               c.VIP,
		Balance:           c.Balance,
		BalanceInUSD:      c.BalanceInUSD,
		BalanceWithTokens: c.BalanceWithTokens,
		TrxCount:          c.TrxCount,
		DateCreated:       c.DateCreated,
		UpdatedAt:         now,
	}
}

// WalletTokens is a wallet's token list returned by the wallet endpoint.
type WalletTokens struct {
	Tokens []domain.WalletToken
	Count  int
}

// Transfer is a single entry of an address's transfer history.
type Transfer struct {
	Hash        string
	Timestamp   int64 // ms
	FromAddress string
	ToAddress   string
	Confirmed   bool
	Reverted    bool
	Amount      decimal.Decimal
}

// Record converts the transfer into a storable transaction record.
func (t Transfer) Record() *domain.Transaction {
	return &domain.Transaction{
		Hash:            t.Hash,
		Amount:          t.Amount,
		Confirmed:       t.Confirmed,
		Reverted:        t.Reverted,
		FromAddress:     t.FromAddress,
		ToAddress:       t.ToAddress,
		TransactionDate: t.Timestamp,
	}
}

// flexDecimal decodes a JSON number or numeric string. Empty, null and
// malformed values decode as zero.
type flexDecimal struct {
	decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = d
	return nil
}

// flexString decodes a JSON string or a bare number into a string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		raw = ""
	}
	*f = flexString(raw)
	return nil
}

// apiStatus is the status block some endpoints attach to responses.
type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// contractResponse is the raw response of the contract endpoint.
type contractResponse struct {
	Status *apiStatus    `json:"status"`
	Data   []rawContract `json:"data"`
	Count  int           `json:"count"`
}

type rawContract struct {
	Address           string          `json:"address"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Balance           flexDecimal     `json:"balance"`
	BalanceInUSD      flexDecimal     `json:"balanceInUsd"`
	BalanceWithTokens flexDecimal     `json:"balanceWithTokens"`
	TrxCount          flexDecimal     `json:"trxCount"`
	DateCreated       flexDecimal     `json:"date_created"`
	VIP               bool            `json:"vip"`
	TokenInfo         json.RawMessage `json:"tokenInfo"`
	Creator           struct {
		Address           string `json:"address"`
		AddressIsContract bool   `json:"address_is_contract"`
		TxHash            string `json:"txHash"`
	} `json:"creator"`
}

func (r rawContract) contract() *Contract {
	var token json.RawMessage
	if len(r.TokenInfo) > 0 && string(r.TokenInfo) != "null" {
		token = r.TokenInfo
	}
	return &Contract{
		Address:     r.Address,
		Name:        r.Name,
		Description: r.Description,
		Creator: Creator{
			Address:    r.Creator.Address,
			IsContract: r.Creator.AddressIsContract,
		},
		TokenInfo:         token,
		VIP:               r.VIP,
		Balance:           r.Balance.Decimal,
		BalanceInUSD:      r.BalanceInUSD.Decimal,
		BalanceWithTokens: r.BalanceWithTokens.Decimal,
		TrxCount:          r.TrxCount.IntPart(),
		DateCreated:       r.DateCreated.IntPart(),
	}
}

// walletResponse is the raw response of the wallet endpoint.
// Data is null when the explorer has nothing for the address.
type walletResponse struct {
	Data  []rawWalletToken `json:"data"`
	Count int              `json:"count"`
}

type rawWalletToken struct {
	TokenID         flexString  `json:"token_id"`
	TokenAbbr       string      `json:"token_abbr"`
	TokenName       string      `json:"token_name"`
	TokenType       flexDecimal `json:"token_type"`
	TokenDecimal    flexDecimal `json:"token_decimal"`
	TokenURL        string      `json:"token_url"`
	Balance         flexString  `json:"balance"`
	TokenValue      flexString  `json:"token_value"`
	TokenPrice      flexString  `json:"token_price"`
	TokenPriceInUSD flexDecimal `json:"token_price_in_usd"`
	TokenValueInUSD flexDecimal `json:"token_value_in_usd"`
	Level           flexDecimal `json:"level"`
	VIP             bool        `json:"vip"`
}

func (r rawWalletToken) token() domain.WalletToken {
	return domain.WalletToken{
		TokenID:         string(r.TokenID),
		TokenAbbr:       r.TokenAbbr,
		TokenName:       r.TokenName,
		TokenType:       int(r.TokenType.IntPart()),
		TokenDecimal:    int(r.TokenDecimal.IntPart()),
		TokenURL:        r.TokenURL,
		Balance:         string(r.Balance),
		TokenValue:      string(r.TokenValue),
		TokenPrice:      string(r.TokenPrice),
		TokenPriceInUSD: r.TokenPriceInUSD.Decimal,
		TokenValueInUSD: r.TokenValueInUSD.Decimal,
		Level:           int(r.Level.IntPart()),
		VIP:             r.VIP,
	}
}

// transferResponse is the raw response of the transfer list endpoint.
// Total is the count the explorer reports for the requested page window.
type transferResponse struct {
	Total int           `json:"total"`
	Data  []rawTransfer `json:"data"`
}

type rawTransfer struct {
	TransactionHash     string      `json:"transactionHash"`
	Timestamp           flexDecimal `json:"timestamp"`
	TransferFromAddress string      `json:"transferFromAddress"`
	TransferToAddress   string      `json:"transferToAddress"`
	Confirmed           bool        `json:"confirmed"`
	Revert              bool        `json:"revert"`
	Amount              flexDecimal `json:"amount"`
	ContractRet         string      `json:"contractRet"`
}

func (r rawTransfer) transfer() Transfer {
	return Transfer{
		Hash:        r.TransactionHash,
		Timestamp:   r.Timestamp.IntPart(),
		FromAddress: r.TransferFromAddress,
		ToAddress:   r.TransferToAddress,
		Confirmed:   r.Confirmed,
		Reverted:    r.Revert,
		Amount:      r.Amount.Decimal,
	}
}
