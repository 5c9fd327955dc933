package ledger

import (
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry is one balance-affecting record in the ledger.
// Once COMPLETED its amount and balances never change; only Status may move on to REFUNDED.
type Entry struct {
	ID                   uuid.UUID          `json:"id"`
	Reference            string             `json:"reference"`
	CorrelationRef       string             `json:"correlation_ref"`
	WalletID             uuid.UUID          `json:"wallet_id"`
	WalletRef            string             `json:"wallet_ref"`
	CounterpartyWalletID *uuid.UUID         `json:"counterparty_wallet_id,omitempty"`
	CounterpartyRef      string             `json:"counterparty_ref,omitempty"`
	Type                 shared.EntryType   `json:"type"`
	Amount               decimal.Decimal    `json:"amount"`
	Currency             string             `json:"currency"`
	BalanceBefore        decimal.Decimal    `json:"balance_before"`
	BalanceAfter         decimal.Decimal    `json:"balance_after"`
	Status               shared.EntryStatus `json:"status"`
	Fee                  decimal.Decimal    `json:"fee"`
	PaymentMethod        string             `json:"payment_method,omitempty"`
	Description          string             `json:"description,omitempty"`
	IdempotencyKey       string             `json:"idempotency_key,omitempty"`
	RequestFingerprint   string             `json:"-"`
	CreatedAt            time.Time          `json:"created_at"`
	CompletedAt          *time.Time         `json:"completed_at,omitempty"`
}

// Draft carries the caller-supplied fields of a new entry
type Draft struct {
	Reference            string
	CorrelationRef       string
	WalletID             uuid.UUID
	WalletRef            string
	CounterpartyWalletID *uuid.UUID
	CounterpartyRef      string
	Type                 shared.EntryType
	Amount               decimal.Decimal
	Currency             string
	PaymentMethod        string
	Description          string
	IdempotencyKey       string
	// RequestFingerprint identifies the request the idempotency key was spent on
	RequestFingerprint string
}

// NewCompleted builds an entry that has been applied to a wallet whose balance was balanceBefore
func NewCompleted(d Draft, balanceBefore decimal.Decimal, now time.Time) (*Entry, error) {
	entry, err := newEntry(d, balanceBefore, now)
	if err != nil {
		return nil, err
	}
	entry.Status = shared.EntryStatusCompleted
	entry.CompletedAt = &now
	return entry, nil
}

// NewPending builds an entry that has not touched the balance yet.
// Its balances are a projection from the current balance and are recomputed on settlement.
func NewPending(d Draft, currentBalance decimal.Decimal, now time.Time) (*Entry, error) {
	entry, err := newEntry(d, currentBalance, now)
	if err != nil {
		return nil, err
	}
	entry.Status = shared.EntryStatusPending
	return entry, nil
}

func newEntry(d Draft, balanceBefore decimal.Decimal, now time.Time) (*Entry, error) {
	if !d.Type.IsValid() {
		return nil, ErrInvalidEntryType{Type: d.Type}
	}
	if err := shared.ValidateAmount(d.Amount); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:                   uuid.New(),
		Reference:            d.Reference,
		CorrelationRef:       d.CorrelationRef,
		WalletID:             d.WalletID,
		WalletRef:            d.WalletRef,
		CounterpartyWalletID: d.CounterpartyWalletID,
		CounterpartyRef:      d.CounterpartyRef,
		Type:                 d.Type,
		Amount:               d.Amount,
		Currency:             d.Currency,
		Fee:                  decimal.Zero,
		PaymentMethod:        d.PaymentMethod,
		Description:          d.Description,
		IdempotencyKey:       d.IdempotencyKey,
		RequestFingerprint:   d.RequestFingerprint,
		CreatedAt:            now,
	}
	if entry.Reference == "" {
		entry.Reference = NewReference()
	}
	if entry.CorrelationRef == "" {
		entry.CorrelationRef = entry.Reference
	}
	entry.applyBalances(balanceBefore)
	return entry, nil
}

// SignedAmount is the amount with the sign of its effect on the wallet balance
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Type.IsInflow() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// IsApplied reports whether this entry is part of the wallet balance
func (e *Entry) IsApplied() bool {
	return e.Status.IsApplied()
}

// Settle applies a PENDING entry against the balance the wallet has right now
func (e *Entry) Settle(balanceBefore decimal.Decimal, now time.Time) error {
	if e.Status != shared.EntryStatusPending {
		return ErrInvalidState{Reference: e.Reference, Status: e.Status, Operation: "settle"}
	}
	e.applyBalances(balanceBefore)
	e.Status = shared.EntryStatusCompleted
	e.CompletedAt = &now
	return nil
}

// Cancel moves a PENDING entry to CANCELLED
func (e *Entry) Cancel(now time.Time) error {
	if e.Status != shared.EntryStatusPending {
		return ErrInvalidState{Reference: e.Reference, Status: e.Status, Operation: "cancel"}
	}
	e.Status = shared.EntryStatusCancelled
	e.CompletedAt = &now
	return nil
}

// MarkRefunded moves a COMPLETED entry to REFUNDED. Refund entries cannot be refunded themselves.
func (e *Entry) MarkRefunded() error {
	if e.Type == shared.EntryTypeRefund {
		return ErrInvalidState{Reference: e.Reference, Status: e.Status, Operation: "refund",
			Reason: "it is already a refund entry"}
	}
	if e.Status != shared.EntryStatusCompleted {
		return ErrInvalidState{Reference: e.Reference, Status: e.Status, Operation: "refund"}
	}
	e.Status = shared.EntryStatusRefunded
	return nil
}

func (e *Entry) applyBalances(balanceBefore decimal.Decimal) {
	e.BalanceBefore = balanceBefore
	e.BalanceAfter = balanceBefore.Add(e.SignedAmount())
}
