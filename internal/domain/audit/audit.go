package audit

import (
	"context"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/google/uuid"
)

// Rejection records a command the ledger refused
type Rejection struct {
	CommandID     string    `json:"command_id"`
	Operation     string    `json:"operation"`
	WalletRef     string    `json:"wallet_ref,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	ErrorKind     string    `json:"error_kind"`
	FailureReason string    `json:"failure_reason"`
	RequestID     string    `json:"request_id,omitempty"`
	RejectedAt    time.Time `json:"rejected_at"`
}

// Repository is the read-optimized audit copy of the ledger
type Repository interface {
	// UpsertEntry stores the latest known state of an entry, keyed by reference
	UpsertEntry(ctx context.Context, entry *ledger.Entry) error
	GetByReference(ctx context.Context, reference string) (*ledger.Entry, error)
	FindByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*ledger.Entry, error)
	RecordRejection(ctx context.Context, rejection *Rejection) error
}
