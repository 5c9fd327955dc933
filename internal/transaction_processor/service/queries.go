package service

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func (e *LedgerEngine) GetEntry(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	var result *ledger.Entry
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		entry, err := s.Entries.GetByReference(ctx, transactionRef)
		result = entry
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTransferLegs returns every entry sharing a correlation reference, OUT leg first
func (e *LedgerEngine) GetTransferLegs(ctx context.Context, correlationRef string) ([]*ledger.Entry, error) {
	var result []*ledger.Entry
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		entries, err := s.Entries.FindByCorrelation(ctx, correlationRef)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return ledger.ErrEntryNotFound{Reference: correlationRef}
		}
		result = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// History pages through a wallet's entries, most recent first
func (e *LedgerEngine) History(ctx context.Context, walletRef string, page, perPage int) (*HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	result := &HistoryPage{WalletRef: walletRef, Page: page, PerPage: perPage}
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		w, err := s.Wallets.GetByReference(ctx, walletRef)
		if err != nil {
			return err
		}
		if result.Entries, err = s.Entries.FindByWallet(ctx, w.ID, perPage, (page-1)*perPage); err != nil {
			return err
		}
		if result.Total, err = s.Entries.CountByWallet(ctx, w.ID); err != nil {
			return err
		}
		result.Totals, err = s.Entries.AppliedTotals(ctx, w.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Entries == nil {
		result.Entries = []*ledger.Entry{}
	}
	return result, nil
}

// Reconcile checks that the wallet balance equals the net of its applied entries
func (e *LedgerEngine) Reconcile(ctx context.Context, walletRef string) (*Reconciliation, error) {
	result := &Reconciliation{WalletRef: walletRef}
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		w, err := s.Wallets.GetByReference(ctx, walletRef)
		if err != nil {
			return err
		}
		totals, err := s.Entries.AppliedTotals(ctx, w.ID)
		if err != nil {
			return err
		}
		result.Balance = w.Balance
		result.Totals = totals
		result.LedgerBalance = totals.Net()
		result.Consistent = w.Balance.Equal(result.LedgerBalance)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		e.logger.Error("Wallet balance does not match ledger",
			"wallet_ref", walletRef,
			"balance", result.Balance.String(),
			"ledger_balance", result.LedgerBalance.String(),
		)
	}
	return result, nil
}
