package service

import (
	"context"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommandProcessor runs ledger commands consumed from Kafka.
// A nil return means the message can be acknowledged.
type CommandProcessor interface {
	ProcessCommand(ctx context.Context, command *shared.LedgerCommand) error
}

// LedgerService is the ledger engine surface used by the processor and the HTTP adapter
type LedgerService interface {
	OpenWallet(ctx context.Context, req OpenWalletRequest) (*wallet.Wallet, error)
	GetWallet(ctx context.Context, walletRef string) (*wallet.Wallet, error)
	ListWallets(ctx context.Context, ownerRef string) ([]*wallet.Wallet, error)
	ChangeWalletStatus(ctx context.Context, walletRef string, status wallet.Status) (*wallet.Wallet, error)
	GetLimits(ctx context.Context, walletRef string) (*limit.Limit, error)
	UpdateLimits(ctx context.Context, walletRef string, caps limit.Caps) (*limit.Limit, error)

	Credit(ctx context.Context, req CreditRequest) (*ledger.Entry, error)
	Debit(ctx context.Context, req DebitRequest) (*ledger.Entry, error)
	Payment(ctx context.Context, req PaymentRequest) (*ledger.Entry, error)
	Authorize(ctx context.Context, req PaymentRequest) (*ledger.Entry, error)
	Settle(ctx context.Context, transactionRef string) (*ledger.Entry, error)
	Transfer(ctx context.Context, req TransferRequest) (*ledger.Entry, error)
	Cancel(ctx context.Context, transactionRef string) (*ledger.Entry, error)
	Refund(ctx context.Context, req RefundRequest) (*ledger.Entry, error)

	GetEntry(ctx context.Context, transactionRef string) (*ledger.Entry, error)
	GetTransferLegs(ctx context.Context, correlationRef string) ([]*ledger.Entry, error)
	History(ctx context.Context, walletRef string, page, perPage int) (*HistoryPage, error)
	Reconcile(ctx context.Context, walletRef string) (*Reconciliation, error)
}

// CommandValidator rejects malformed commands before they reach the engine
type CommandValidator interface {
	Validate(ctx context.Context, command *shared.LedgerCommand) error
}

// LimitPolicy enforces spend caps inside the caller's unit of work
type LimitPolicy interface {
	// CheckAndReserve locks or creates the wallet's limit row, applies date resets,
	// rejects with limit.ErrLimitExceeded and otherwise records the amount as spent.
	CheckAndReserve(ctx context.Context, limits limit.Repository, w *wallet.Wallet, amount decimal.Decimal, occursOn time.Time) (*limit.Limit, error)
	Ensure(ctx context.Context, limits limit.Repository, walletID uuid.UUID, now time.Time) (*limit.Limit, error)
	Snapshot(ctx context.Context, limits limit.Repository, walletID uuid.UUID, now time.Time) (*limit.Limit, error)
	UpdateCaps(ctx context.Context, limits limit.Repository, walletID uuid.UUID, caps limit.Caps, now time.Time) (*limit.Limit, error)
}

// OutboxManager writes the outbox message for an entry change in the same unit of work
type OutboxManager interface {
	Record(ctx context.Context, repo outbox.Repository, entry *ledger.Entry, now time.Time) error
}

// FailureRecorder handles recording rejected commands
type FailureRecorder interface {
	RecordFailure(ctx context.Context, command *shared.LedgerCommand, kind ErrorKind, cause error) error
}

// Notifier is told about completed operations. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, walletRef, title, message string) error
}

// MetricsRecorder observes engine operations
type MetricsRecorder interface {
	ObserveOperation(operation string, outcome string, elapsed time.Duration)
	IncConflictRetry(operation string)
}
