package service

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/stretchr/testify/mock"
)

type MockCommandValidator struct {
	mock.Mock
}

func (m *MockCommandValidator) Validate(ctx context.Context, command *shared.LedgerCommand) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}

type MockFailureRecorder struct {
	mock.Mock
}

func (m *MockFailureRecorder) RecordFailure(ctx context.Context, command *shared.LedgerCommand, kind ErrorKind, cause error) error {
	args := m.Called(ctx, command, kind, cause)
	return args.Error(0)
}

// MockLedgerService mocks the LedgerService interface
type MockLedgerService struct {
	mock.Mock
}

func entryResult(args mock.Arguments) (*ledger.Entry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) OpenWallet(ctx context.Context, req OpenWalletRequest) (*wallet.Wallet, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerService) GetWallet(ctx context.Context, walletRef string) (*wallet.Wallet, error) {
	args := m.Called(ctx, walletRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerService) ListWallets(ctx context.Context, ownerRef string) ([]*wallet.Wallet, error) {
	args := m.Called(ctx, ownerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerService) ChangeWalletStatus(ctx context.Context, walletRef string, status wallet.Status) (*wallet.Wallet, error) {
	args := m.Called(ctx, walletRef, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func (m *MockLedgerService) GetLimits(ctx context.Context, walletRef string) (*limit.Limit, error) {
	args := m.Called(ctx, walletRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*limit.Limit), args.Error(1)
}

func (m *MockLedgerService) UpdateLimits(ctx context.Context, walletRef string, caps limit.Caps) (*limit.Limit, error) {
	args := m.Called(ctx, walletRef, caps)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*limit.Limit), args.Error(1)
}

func (m *MockLedgerService) Credit(ctx context.Context, req CreditRequest) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, req))
}

func (m *MockLedgerService) Debit(ctx context.Context, req DebitRequest) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, req))
}

func (m *MockLedgerService) Payment(ctx context.Context, req PaymentRequest) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, req))
}

func (m *MockLedgerService) Authorize(ctx context.Context, req PaymentRequest) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, req))
}

func (m *MockLedgerService) Settle(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, transactionRef))
}

func (m *MockLedgerService) Transfer(ctx context.Context, req TransferRequest) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, req))
}

func (m *MockLedgerService) Cancel(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, transactionRef))
}

func (m *MockLedgerService) Refund(ctx context.Context, req RefundRequest) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, req))
}

func (m *MockLedgerService) GetEntry(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	return entryResult(m.Called(ctx, transactionRef))
}

func (m *MockLedgerService) GetTransferLegs(ctx context.Context, correlationRef string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, correlationRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, walletRef string, page, perPage int) (*HistoryPage, error) {
	args := m.Called(ctx, walletRef, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HistoryPage), args.Error(1)
}

func (m *MockLedgerService) Reconcile(ctx context.Context, walletRef string) (*Reconciliation, error) {
	args := m.Called(ctx, walletRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reconciliation), args.Error(1)
}
