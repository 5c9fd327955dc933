package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(newTestLogger(), mock)
	msg, err := outbox.NewMessage(newTestEntry(t), time.Now())
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ledger_outbox")).
		WithArgs(msg.EntryID, msg.EntryReference, msg.WalletID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(17)))

	require.NoError(t, repo.Create(ctx, msg))
	assert.Equal(t, int64(17), msg.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(newTestLogger(), mock)
	msg, err := outbox.NewMessage(newTestEntry(t), time.Now())
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"id", "entry_id", "entry_reference", "wallet_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}).
		AddRow(int64(1), msg.EntryID, msg.EntryReference, msg.WalletID, msg.Payload, msg.Status, 0, msg.CreatedAt, (*time.Time)(nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ledger_outbox")).
		WithArgs(shared.OutboxStatusPending, 50).
		WillReturnRows(rows)

	messages, err := repo.GetPending(ctx, 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, msg.EntryReference, messages[0].EntryReference)

	entry, err := messages[0].GetLedgerEntry()
	require.NoError(t, err)
	assert.Equal(t, msg.EntryReference, entry.Reference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewOutboxRepository(newTestLogger(), mock)
	query := regexp.QuoteMeta("UPDATE ledger_outbox")

	t.Run("SuccessfulUpdate", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(3)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 3, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MessageNotFound", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(99)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 99, shared.OutboxStatusProcessed)
		assert.ErrorAs(t, err, &outbox.ErrMessageNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("IncrementAttempts", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(pgxmock.AnyArg(), int64(3)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.IncrementAttempts(ctx, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
