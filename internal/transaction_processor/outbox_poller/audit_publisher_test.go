package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) UpsertEntry(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepo) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockAuditRepo) FindByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockAuditRepo) RecordRejection(ctx context.Context, rejection *audit.Rejection) error {
	args := m.Called(ctx, rejection)
	return args.Error(0)
}

func TestAuditPublisher_Publish(t *testing.T) {
	entry := &ledger.Entry{
		ID:             uuid.New(),
		Reference:      "TXN-OUT",
		CorrelationRef: "TXN",
		Type:           shared.EntryTypeTransferOut,
		Amount:         decimal.NewFromInt(300),
		Status:         shared.EntryStatusRefunded,
	}
	message, err := outbox.NewMessage(entry, time.Now().UTC())
	require.NoError(t, err)
	message.ID = 7

	tests := []struct {
		name        string
		message     *outbox.Message
		setupMocks  func(repo *MockAuditRepo)
		wantErr     bool
		undecodable bool
	}{
		{
			name:    "upserts latest snapshot",
			message: message,
			setupMocks: func(repo *MockAuditRepo) {
				repo.On("UpsertEntry", mock.Anything, mock.MatchedBy(func(e *ledger.Entry) bool {
					return e.Reference == "TXN-OUT" && e.Status == shared.EntryStatusRefunded && e.Amount.Equal(decimal.NewFromInt(300))
				})).Return(nil).Once()
			},
		},
		{
			name:    "audit store error",
			message: message,
			setupMocks: func(repo *MockAuditRepo) {
				repo.On("UpsertEntry", mock.Anything, mock.Anything).Return(errors.New("mongo down")).Once()
			},
			wantErr: true,
		},
		{
			name:        "undecodable payload",
			message:     &outbox.Message{ID: 8, EntryReference: "TXN-BAD", Payload: []byte(`{"amount":`)},
			setupMocks:  func(*MockAuditRepo) {},
			wantErr:     true,
			undecodable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockAuditRepo{}
			tt.setupMocks(repo)
			publisher := NewAuditPublisher(repo, slog.Default())

			err := publisher.Publish(context.Background(), tt.message)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.undecodable, errors.Is(err, ErrUndecodablePayload))
			repo.AssertExpectations(t)
		})
	}
}
