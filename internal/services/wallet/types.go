package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"vaultledger/internal/models"
	"vaultledger/internal/repositories"
	"vaultledger/internal/services/notification"
)

// PriceProvider quotes an asset in the quote currency (USD).
type PriceProvider interface {
	Price(ctx context.Context, asset models.Asset) (decimal.Decimal, error)
}

// AddressGenerator produces placeholder addresses and hashes.
type AddressGenerator interface {
	Address(asset models.Asset) string
	TxHash() string
}

// AccountCache holds account snapshots for the wallet view.
// GetAccount returns nil, nil on a miss.
type AccountCache interface {
	GetAccount(ctx context.Context, id uint) (*models.Account, error)
	CacheAccount(ctx context.Context, account *models.Account) error
}

// Mutation is one additive balance change.
type Mutation struct {
	Asset models.Asset
	Delta decimal.Decimal
	Kind  models.EntryKind
	// Status defaults to completed.
	Status    models.TransferStatus
	Reference string
	// Price is the quote per unit already resolved by the caller.
	Price decimal.Decimal
	// Counterparty replaces the generated external address.
	Counterparty string
	Metadata     map[string]interface{}
}

// AdjustRequest sets an account's balance for one asset to Amount.
type AdjustRequest struct {
	AccountID uint
	Asset     string
	Amount    string
}

// Result is the outcome of a mutation. Entry is nil for a no-op.
type Result struct {
	Account *models.Account
	Entry   *models.LedgerEntry
}

// Overview is the wallet view returned to account owners.
type Overview struct {
	AccountID uint               `json:"account_id"`
	Balances  models.Balances    `json:"balances"`
	Addresses models.AddressBook `json:"addresses"`
}

// HistoryQuery filters an account's transaction history.
type HistoryQuery struct {
	AccountID uint
	Asset     string
	Type      string // sent, received or pending
	Limit     int
	Offset    int
}

// HistoryPage is one page of transaction history.
type HistoryPage struct {
	Entries []models.LedgerEntry
	Total   int64
}

// AssetTotal sums completed entries of one asset.
type AssetTotal struct {
	Asset  models.Asset    `json:"asset"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
	Value  decimal.Decimal `json:"value"`
}

// Stats summarizes an account's activity. Today covers completed entries
// since midnight UTC; Recent counts every entry of the last seven days.
type Stats struct {
	Today struct {
		Sent     []AssetTotal `json:"sent"`
		Received []AssetTotal `json:"received"`
	} `json:"today"`
	Pending int64 `json:"pending"`
	Recent  int64 `json:"recent"`
}

// Service is the Balance Mutator plus the read side of the wallet.
type Service interface {
	Apply(ctx context.Context, tx repositories.LedgerRepository, account *models.Account, m Mutation) (*models.LedgerEntry, error)
	AdjustBalance(ctx context.Context, req AdjustRequest) (*Result, error)
	Quote(ctx context.Context, asset models.Asset) decimal.Decimal
	Committed(ctx context.Context, account *models.Account, entry *models.LedgerEntry, template string, vars notification.Vars)
	GetOverview(ctx context.Context, accountID uint) (*Overview, error)
	History(ctx context.Context, q HistoryQuery) (*HistoryPage, error)
	GetEntry(ctx context.Context, accountID, entryID uint) (*models.LedgerEntry, error)
	Stats(ctx context.Context, accountID uint) (*Stats, error)
}
