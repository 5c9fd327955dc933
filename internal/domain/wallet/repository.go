package wallet

import (
	"context"
	"fmt"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines wallet persistence operations
type Repository interface {
	Create(ctx context.Context, wallet *Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetByReference(ctx context.Context, reference string) (*Wallet, error)
	ListByOwner(ctx context.Context, ownerRef string) ([]*Wallet, error)

	// Update persists a mutated wallet, checking that the stored version is wallet.Version-1
	Update(ctx context.Context, wallet *Wallet) error

	// LockForUpdate acquires an exclusive lock held until the unit of work ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Wallet, error)
}

// ErrWalletNotFound indicates an unknown wallet reference or id
type ErrWalletNotFound struct {
	Reference string
	ID        uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	if e.Reference != "" {
		return "wallet not found: " + e.Reference
	}
	return "wallet not found: " + e.ID.String()
}

// Is matches any ErrWalletNotFound when the target carries no identity
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" && t.ID == uuid.Nil {
		return true
	}
	return e.Reference == t.Reference && e.ID == t.ID
}

// ErrWalletNotActive indicates a balance change on a wallet that is not ACTIVE
type ErrWalletNotActive struct {
	Reference string
	Status    Status
}

func (e ErrWalletNotActive) Error() string {
	return fmt.Sprintf("wallet %s is not active (status %s)", e.Reference, e.Status)
}

// ErrInsufficientBalance indicates a debit larger than the available balance
type ErrInsufficientBalance struct {
	Reference string
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient balance in wallet %s: available %s, requested %s",
		e.Reference, e.Balance.StringFixed(shared.MoneyScale), e.Requested.StringFixed(shared.MoneyScale))
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	WalletID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.WalletID.String()
}

func (e ErrConcurrentModification) Unwrap() error {
	return shared.ErrConflict
}

// ErrDuplicateReference indicates wallet reference uniqueness violation
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "wallet with reference already exists: " + e.Reference
}

func (e ErrDuplicateReference) Unwrap() error {
	return shared.ErrConflict
}
