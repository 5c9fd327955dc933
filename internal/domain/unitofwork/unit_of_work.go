package unitofwork

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
)

// Stores are the repositories bound to one unit of work
type Stores struct {
	Wallets wallet.Repository
	Entries ledger.Repository
	Limits  limit.Repository
	Outbox  outbox.Repository
}

// UnitOfWork runs fn against stores that commit together.
// If fn returns an error nothing it wrote is visible afterwards, and all locks are released.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
