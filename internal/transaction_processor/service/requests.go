package service

import (
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/shopspring/decimal"
)

// EngineConfig holds the ledger engine's retry and notification settings
type EngineConfig struct {
	MaxConflictRetries   uint64
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	DefaultCurrency      string
	NotificationTimeout  time.Duration
}

type OpenWalletRequest struct {
	OwnerRef string
	Currency string
	Type     wallet.Type
}

// CreditRequest adds money to a wallet. Type is TOP_UP (default) or CREDIT.
type CreditRequest struct {
	WalletRef      string
	Amount         decimal.Decimal
	PaymentMethod  string
	Description    string
	Type           shared.EntryType
	IdempotencyKey string
}

// DebitRequest takes money out of a wallet. Type is WITHDRAWAL (default) or DEBIT.
type DebitRequest struct {
	WalletRef      string
	Amount         decimal.Decimal
	PaymentMethod  string
	Description    string
	Type           shared.EntryType
	IdempotencyKey string
}

type PaymentRequest struct {
	WalletRef      string
	Amount         decimal.Decimal
	PaymentMethod  string
	Description    string
	IdempotencyKey string
}

// TransferRequest moves money between two wallets addressed by public reference
type TransferRequest struct {
	SourceRef      string
	DestinationRef string
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

type RefundRequest struct {
	TransactionRef string
	Reason         string
	IdempotencyKey string
}

// HistoryPage is one page of a wallet's entries, most recent first, with lifetime totals
type HistoryPage struct {
	WalletRef string          `json:"wallet_ref"`
	Entries   []*ledger.Entry `json:"entries"`
	Page      int             `json:"page"`
	PerPage   int             `json:"per_page"`
	Total     int64           `json:"total"`
	Totals    ledger.Totals   `json:"totals"`
}

// Reconciliation compares a wallet balance with the sum of its applied entries
type Reconciliation struct {
	WalletRef     string          `json:"wallet_ref"`
	Balance       decimal.Decimal `json:"balance"`
	LedgerBalance decimal.Decimal `json:"ledger_balance"`
	Totals        ledger.Totals   `json:"totals"`
	Consistent    bool            `json:"consistent"`
}
