package components

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLimitRepo struct {
	mock.Mock
}

func (m *MockLimitRepo) Get(ctx context.Context, walletID uuid.UUID) (*limit.Limit, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*limit.Limit), args.Error(1)
}

func (m *MockLimitRepo) GetForUpdate(ctx context.Context, walletID uuid.UUID) (*limit.Limit, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*limit.Limit), args.Error(1)
}

func (m *MockLimitRepo) Create(ctx context.Context, l *limit.Limit) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *MockLimitRepo) Save(ctx context.Context, l *limit.Limit) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

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
