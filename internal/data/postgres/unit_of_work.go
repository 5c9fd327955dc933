package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

// UnitOfWork runs ledger operations in one PostgreSQL transaction with bounded lock waits
type UnitOfWork struct {
	db          persistence.TxBeginner
	logger      *slog.Logger
	lockTimeout time.Duration
}

var _ unitofwork.UnitOfWork = (*UnitOfWork)(nil)

// NewUnitOfWork creates a unit of work; lockTimeout bounds every row lock wait inside it
func NewUnitOfWork(logger *slog.Logger, db persistence.TxBeginner, lockTimeout time.Duration) *UnitOfWork {
	return &UnitOfWork{
		db:          db,
		logger:      logger,
		lockTimeout: lockTimeout,
	}
}

// Execute begins a transaction, binds every repository to it and commits if fn succeeds.
// Lock timeouts, serialization failures and deadlocks surface as shared.ErrConflict.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, stores unitofwork.Stores) error) error {
	var fnErr error
	err := persistence.ExecuteTx(ctx, u.db, func(tx pgx.Tx) error {
		if u.lockTimeout > 0 {
			// SET does not accept bind parameters
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", u.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}

		fnErr = fn(ctx, unitofwork.Stores{
			Wallets: NewWalletRepository(u.logger, tx),
			Entries: NewLedgerRepository(u.logger, tx),
			Limits:  NewLimitRepository(u.logger, tx),
			Outbox:  NewOutboxRepository(u.logger, tx),
		})
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin, lock timeout setup or commit failed
		u.logger.Error("Unit of work failed outside the operation", "error", err)
		return classify(err)
	}
	return err
}
