package handler

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) OpenWallet(ctx context.Context, req service.OpenWalletRequest) (*wallet.Wallet, error) {
	args := m.Called(ctx, req)
	return walletResult(args)
}

func (m *MockLedgerService) GetWallet(ctx context.Context, walletRef string) (*wallet.Wallet, error) {
	args := m.Called(ctx, walletRef)
	return walletResult(args)
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
	return walletResult(args)
}

func (m *MockLedgerService) GetLimits(ctx context.Context, walletRef string) (*limit.Limit, error) {
	args := m.Called(ctx, walletRef)
	return limitResult(args)
}

func (m *MockLedgerService) UpdateLimits(ctx context.Context, walletRef string, caps limit.Caps) (*limit.Limit, error) {
	args := m.Called(ctx, walletRef, caps)
	return limitResult(args)
}

func (m *MockLedgerService) Credit(ctx context.Context, req service.CreditRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	return entryResult(args)
}

func (m *MockLedgerService) Debit(ctx context.Context, req service.DebitRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	return entryResult(args)
}

func (m *MockLedgerService) Payment(ctx context.Context, req service.PaymentRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	return entryResult(args)
}

func (m *MockLedgerService) Authorize(ctx context.Context, req service.PaymentRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	return entryResult(args)
}

func (m *MockLedgerService) Settle(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	args := m.Called(ctx, transactionRef)
	return entryResult(args)
}

func (m *MockLedgerService) Transfer(ctx context.Context, req service.TransferRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	return entryResult(args)
}

func (m *MockLedgerService) Cancel(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	args := m.Called(ctx, transactionRef)
	return entryResult(args)
}

func (m *MockLedgerService) Refund(ctx context.Context, req service.RefundRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, req)
	return entryResult(args)
}

func (m *MockLedgerService) GetEntry(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	args := m.Called(ctx, transactionRef)
	return entryResult(args)
}

func (m *MockLedgerService) GetTransferLegs(ctx context.Context, correlationRef string) ([]*ledger.Entry, error) {
	args := m.Called(ctx, correlationRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, walletRef string, page, perPage int) (*service.HistoryPage, error) {
	args := m.Called(ctx, walletRef, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryPage), args.Error(1)
}

func (m *MockLedgerService) Reconcile(ctx context.Context, walletRef string) (*service.Reconciliation, error) {
	args := m.Called(ctx, walletRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Reconciliation), args.Error(1)
}

func walletResult(args mock.Arguments) (*wallet.Wallet, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Wallet), args.Error(1)
}

func limitResult(args mock.Arguments) (*limit.Limit, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*limit.Limit), args.Error(1)
}

func entryResult(args mock.Arguments) (*ledger.Entry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockCommandService struct {
	mock.Mock
}

func (m *MockCommandService) Submit(ctx context.Context, command *shared.LedgerCommand) (string, error) {
	args := m.Called(ctx, command)
	return args.String(0), args.Error(1)
}
