package ledger

import (
	"context"
	"fmt"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the append-only ledger store.
// Apart from Append, the only write is UpdateState, guarded by the expected current status.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	GetByReference(ctx context.Context, reference string) (*Entry, error)
	LockByReference(ctx context.Context, reference string) (*Entry, error)

	// FindByIdempotencyKey returns nil when no entry carries the key
	FindByIdempotencyKey(ctx context.Context, key string) (*Entry, error)
	FindByCorrelation(ctx context.Context, correlationRef string) ([]*Entry, error)

	// FindByWallet returns entries most-recent-first
	FindByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error)
	AppliedTotals(ctx context.Context, walletID uuid.UUID) (Totals, error)

	// UpdateState persists status, balances and completion time if the stored status is still from
	UpdateState(ctx context.Context, entry *Entry, from shared.EntryStatus) error
}

// Totals sums the applied inflows and outflows of a wallet
type Totals struct {
	Credits decimal.Decimal `json:"total_credits"`
	Debits  decimal.Decimal `json:"total_debits"`
}

// Net is the balance implied by the ledger
func (t Totals) Net() decimal.Decimal {
	return t.Credits.Sub(t.Debits)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	Reference string
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.Reference
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// An empty target reference matches any ErrEntryNotFound
	if t.Reference == "" {
		return true
	}
	return e.Reference == t.Reference
}

// ErrInvalidState indicates an operation not allowed for the entry's current status or type.
// Reason, when set, replaces the status in the message.
type ErrInvalidState struct {
	Reference string
	Status    shared.EntryStatus
	Operation string
	Reason    string
}

func (e ErrInvalidState) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s transaction %s: %s", e.Operation, e.Reference, e.Reason)
	}
	return fmt.Sprintf("cannot %s transaction %s in status %s", e.Operation, e.Reference, e.Status)
}

// ErrDuplicateEntry indicates reference or idempotency key uniqueness violation
type ErrDuplicateEntry struct {
	Reference string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.Reference
}

// Unwrap lets a racing duplicate be retried; the retry replays the stored entry
func (e ErrDuplicateEntry) Unwrap() error {
	return shared.ErrConflict
}

// ErrInvalidEntryType indicates an unknown entry type or one not allowed for the operation
type ErrInvalidEntryType struct {
	Type shared.EntryType
}

func (e ErrInvalidEntryType) Error() string {
	return "invalid entry type: " + string(e.Type)
}
