package limit

import (
	"context"
	"fmt"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository persists one Limit row per wallet
type Repository interface {
	Get(ctx context.Context, walletID uuid.UUID) (*Limit, error)
	GetForUpdate(ctx context.Context, walletID uuid.UUID) (*Limit, error)

	// Create inserts the row unless one already exists for the wallet
	Create(ctx context.Context, limit *Limit) error
	Save(ctx context.Context, limit *Limit) error
}

// Kind names which cap was exceeded
type Kind string

const (
	KindPerTransaction Kind = "PER_TRANSACTION_LIMIT_EXCEEDED"
	KindDaily          Kind = "DAILY_LIMIT_EXCEEDED"
	KindMonthly        Kind = "MONTHLY_LIMIT_EXCEEDED"
)

// ErrLimitExceeded indicates an amount that would break one of the caps
type ErrLimitExceeded struct {
	Kind      Kind
	Limit     decimal.Decimal
	Spent     decimal.Decimal
	Requested decimal.Decimal
}

func (e ErrLimitExceeded) Error() string {
	return fmt.Sprintf("%s: limit %s, spent %s, requested %s", e.Kind,
		e.Limit.StringFixed(shared.MoneyScale), e.Spent.StringFixed(shared.MoneyScale), e.Requested.StringFixed(shared.MoneyScale))
}

// ErrLimitNotFound indicates a wallet without limit counters
type ErrLimitNotFound struct {
	WalletID uuid.UUID
}

func (e ErrLimitNotFound) Error() string {
	return "transaction limits not found for wallet: " + e.WalletID.String()
}

// Is matches any ErrLimitNotFound when the target carries no wallet id
func (e ErrLimitNotFound) Is(target error) bool {
	t, ok := target.(ErrLimitNotFound)
	if !ok {
		return false
	}
	return t.WalletID == uuid.Nil || t.WalletID == e.WalletID
}
