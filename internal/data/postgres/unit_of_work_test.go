package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_Execute(t *testing.T) {
	ctx := context.Background()
	lockTimeout := regexp.QuoteMeta("SET LOCAL lock_timeout = '1500ms'")

	t.Run("CommitsStoresBoundToOneTransaction", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		w := newTestWallet()
		mock.ExpectBegin()
		mock.ExpectExec(lockTimeout).WillReturnResult(pgxmock.NewResult("SET", 0))
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs(w.ID).WillReturnRows(walletRow(w))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
			WithArgs(pgxmock.AnyArg(), w.Status, w.Version+1, pgxmock.AnyArg(), w.ID, w.Version).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		uow := NewUnitOfWork(newTestLogger(), mock, 1500*time.Millisecond)
		err = uow.Execute(ctx, func(ctx context.Context, stores unitofwork.Stores) error {
			locked, err := stores.Wallets.LockForUpdate(ctx, w.ID)
			if err != nil {
				return err
			}
			if err := locked.Credit(locked.Balance, time.Now()); err != nil {
				return err
			}
			return stores.Wallets.Update(ctx, locked)
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DomainErrorRollsBackUnchanged", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectExec(lockTimeout).WillReturnResult(pgxmock.NewResult("SET", 0))
		mock.ExpectRollback()

		domainErr := wallet.ErrWalletNotActive{Reference: "WLT-X", Status: wallet.StatusFrozen}
		uow := NewUnitOfWork(newTestLogger(), mock, 1500*time.Millisecond)
		err = uow.Execute(ctx, func(ctx context.Context, stores unitofwork.Stores) error {
			return domainErr
		})

		assert.ErrorAs(t, err, &wallet.ErrWalletNotActive{})
		assert.NotErrorIs(t, err, shared.ErrStoreFailure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SerializationFailureOnCommitIsConflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pgconn.PgError{Code: pgSerializationFailure})

		uow := NewUnitOfWork(newTestLogger(), mock, 0)
		err = uow.Execute(ctx, func(ctx context.Context, stores unitofwork.Stores) error {
			return nil
		})

		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFailureIsStoreFailure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		uow := NewUnitOfWork(newTestLogger(), mock, time.Second)
		err = uow.Execute(ctx, func(ctx context.Context, stores unitofwork.Stores) error {
			return nil
		})

		assert.ErrorIs(t, err, shared.ErrStoreFailure)
	})
}
