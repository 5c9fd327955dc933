package wallet

import (
	"errors"
	"strings"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOwnerRef     = errors.New("owner reference cannot be empty")
	ErrOwnerRefTooLong   = errors.New("owner reference is too long")
	ErrInvalidWalletType = errors.New("invalid wallet type")
	ErrInvalidStatus     = errors.New("invalid wallet status")
)

// Status is the administrative state of a wallet
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusFrozen   Status = "FROZEN"
	StatusBlocked  Status = "BLOCKED"
)

// IsValid reports whether s is a known wallet status
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusFrozen, StatusBlocked:
		return true
	default:
		return false
	}
}

// Type classifies wallets by purpose
type Type string

const (
	TypePersonal Type = "PERSONAL"
	TypeBusiness Type = "BUSINESS"
	TypeSavings  Type = "SAVINGS"
)

// IsValid reports whether t is a known wallet type
func (t Type) IsValid() bool {
	switch t {
	case TypePersonal, TypeBusiness, TypeSavings:
		return true
	default:
		return false
	}
}

// Wallet holds a balance owned by an external party.
// Balance changes only through the ledger engine and must never go negative.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	Reference string          `json:"reference"`
	OwnerRef  string          `json:"owner_ref"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	Status    Status          `json:"status"`
	Type      Type            `json:"type"`
	Version   int             `json:"version"` // For optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewReference generates a shareable wallet reference such as WLT-1A2B3C4D5E6F7A8
func NewReference() string {
	return "WLT-" + strings.ToUpper(uuid.NewString()[:15])
}

// NewWallet opens an ACTIVE wallet with a zero balance
func NewWallet(ownerRef, currency string, walletType Type, now time.Time) (*Wallet, error) {
	if ownerRef == "" {
		return nil, ErrEmptyOwnerRef
	}
	if len(ownerRef) > shared.MaxOwnerRefLength {
		return nil, ErrOwnerRefTooLong
	}
	code, err := shared.NormalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if walletType == "" {
		walletType = TypePersonal
	}
	if !walletType.IsValid() {
		return nil, ErrInvalidWalletType
	}

	return &Wallet{
		ID:        uuid.New(),
		Reference: NewReference(),
		OwnerRef:  ownerRef,
		Balance:   decimal.Zero,
		Currency:  code,
		Status:    StatusActive,
		Type:      walletType,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsActive reports whether the wallet may take balance changes
func (w *Wallet) IsActive() bool {
	return w.Status == StatusActive
}

// CanDebit checks if the balance covers the amount
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// Credit adds the amount to the balance
func (w *Wallet) Credit(amount decimal.Decimal, now time.Time) error {
	if err := w.ensureMutable(amount); err != nil {
		return err
	}

	w.Balance = w.Balance.Add(amount)
	w.touch(now)
	return nil
}

// Debit subtracts the amount from the balance
func (w *Wallet) Debit(amount decimal.Decimal, now time.Time) error {
	if err := w.ensureMutable(amount); err != nil {
		return err
	}
	if !w.CanDebit(amount) {
		return ErrInsufficientBalance{Reference: w.Reference, Balance: w.Balance, Requested: amount}
	}

	w.Balance = w.Balance.Sub(amount)
	w.touch(now)
	return nil
}

// ChangeStatus applies an administrative status transition
func (w *Wallet) ChangeStatus(status Status, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	w.Status = status
	w.touch(now)
	return nil
}

func (w *Wallet) ensureMutable(amount decimal.Decimal) error {
	if err := shared.ValidateAmount(amount); err != nil {
		return err
	}
	if !w.IsActive() {
		return ErrWalletNotActive{Reference: w.Reference, Status: w.Status}
	}
	return nil
}

func (w *Wallet) touch(now time.Time) {
	w.UpdatedAt = now
	w.Version++
}
