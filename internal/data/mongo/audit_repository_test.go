package mongo

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTransferLeg(t *testing.T) *ledger.Entry {
	t.Helper()
	counterparty := uuid.New()
	out, _ := ledger.TransferReferences(ledger.NewReference())
	entry, err := ledger.NewCompleted(ledger.Draft{
		Reference:            out,
		WalletID:             uuid.New(),
		WalletRef:            "WLT-SOURCE0000000",
		CounterpartyWalletID: &counterparty,
		CounterpartyRef:      "WLT-DEST000000000",
		Type:                 shared.EntryTypeTransferOut,
		Amount:               decimal.RequireFromString("300.25"),
		Currency:             shared.DefaultCurrency,
		Description:          "rent",
	}, decimal.RequireFromString("1000.00"), time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	return entry
}

func toBSON(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestAuditRepository_UpsertEntry(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("SuccessfulUpsert", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := repo.UpsertEntry(context.Background(), newTransferLeg(mt.T))
		assert.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
	})

	mt.Run("WriteError", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		err := repo.UpsertEntry(context.Background(), newTransferLeg(mt.T))
		assert.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to upsert audit entry")
	})
}

func TestAuditRepository_GetByReference(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("RoundTripsDecimalsAndIds", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		entry := newTransferLeg(mt.T)
		doc, err := repo.toDocument(entry)
		require.NoError(mt, err)

		ns := mt.DB.Name() + "." + AuditCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, toBSON(mt.T, doc)))

		got, err := repo.GetByReference(context.Background(), entry.Reference)
		require.NoError(mt, err)
		assert.Equal(mt, entry.ID, got.ID)
		assert.Equal(mt, entry.WalletID, got.WalletID)
		require.NotNil(mt, got.CounterpartyWalletID)
		assert.Equal(mt, *entry.CounterpartyWalletID, *got.CounterpartyWalletID)
		assert.True(mt, entry.Amount.Equal(got.Amount))
		assert.True(mt, entry.BalanceAfter.Equal(got.BalanceAfter))
		assert.Equal(mt, shared.EntryTypeTransferOut, got.Type)
		assert.Equal(mt, shared.EntryStatusCompleted, got.Status)
	})

	mt.Run("NotFound", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		ns := mt.DB.Name() + "." + AuditCollectionName
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByReference(context.Background(), "TXN-MISSING")
		assert.ErrorIs(mt, err, ledger.ErrEntryNotFound{Reference: "TXN-MISSING"})
	})
}

func TestAuditRepository_FindByWallet(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("SuccessfulFind", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		first, second := newTransferLeg(mt.T), newTransferLeg(mt.T)
		firstDoc, err := repo.toDocument(first)
		require.NoError(mt, err)
		secondDoc, err := repo.toDocument(second)
		require.NoError(mt, err)

		ns := mt.DB.Name() + "." + AuditCollectionName
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, toBSON(mt.T, firstDoc), toBSON(mt.T, secondDoc)),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch),
		)

		entries, err := repo.FindByWallet(context.Background(), first.WalletID, 10, 0)
		require.NoError(mt, err)
		require.Len(mt, entries, 2)
		assert.Equal(mt, first.Reference, entries[0].Reference)
		assert.Equal(mt, second.Reference, entries[1].Reference)
	})
}

func TestAuditRepository_RecordRejection(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("SuccessfulInsert", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.RecordRejection(context.Background(), &audit.Rejection{
			CommandID:     "cmd-9",
			Operation:     string(shared.OperationDebit),
			WalletRef:     "WLT-SOURCE0000000",
			Amount:        "800.00",
			ErrorKind:     "INSUFFICIENT_BALANCE",
			FailureReason: "insufficient balance",
			RejectedAt:    time.Now(),
		})
		assert.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
		assert.Equal(mt, RejectionCollectionName, started.Command.Lookup("insert").StringValue())
	})
}

func TestAuditRepository_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("CreatesIndexes", func(mt *mtest.T) {
		repo := NewAuditRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.EnsureIndexes(context.Background()))
	})
}
