package service

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
)

// OpenWallet creates an ACTIVE wallet together with its default limits
func (e *LedgerEngine) OpenWallet(ctx context.Context, req OpenWalletRequest) (*wallet.Wallet, error) {
	currency := req.Currency
	if currency == "" {
		currency = e.cfg.DefaultCurrency
	}

	var result *wallet.Wallet
	err := e.execute(ctx, "open_wallet", func(ctx context.Context, s unitofwork.Stores) error {
		now := e.now()
		w, err := wallet.NewWallet(req.OwnerRef, currency, req.Type, now)
		if err != nil {
			return err
		}
		if err := s.Wallets.Create(ctx, w); err != nil {
			return err
		}
		if _, err := e.limits.Ensure(ctx, s.Limits, w.ID, now); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		e.logger.Warn("Failed to open wallet", "owner_ref", req.OwnerRef, "kind", KindOf(err), "error", err)
		return nil, err
	}

	e.logger.Info("Wallet opened", "wallet_ref", result.Reference, "owner_ref", result.OwnerRef, "currency", result.Currency)
	return result, nil
}

func (e *LedgerEngine) GetWallet(ctx context.Context, walletRef string) (*wallet.Wallet, error) {
	var result *wallet.Wallet
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		w, err := s.Wallets.GetByReference(ctx, walletRef)
		result = w
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *LedgerEngine) ListWallets(ctx context.Context, ownerRef string) ([]*wallet.Wallet, error) {
	var result []*wallet.Wallet
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		wallets, err := s.Wallets.ListByOwner(ctx, ownerRef)
		result = wallets
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ChangeWalletStatus applies an administrative status change such as freezing a wallet
func (e *LedgerEngine) ChangeWalletStatus(ctx context.Context, walletRef string, status wallet.Status) (*wallet.Wallet, error) {
	var result *wallet.Wallet
	err := e.execute(ctx, "change_status", func(ctx context.Context, s unitofwork.Stores) error {
		w, err := lockWalletByReference(ctx, s, walletRef)
		if err != nil {
			return err
		}
		if err := w.ChangeStatus(status, e.now()); err != nil {
			return err
		}
		if err := s.Wallets.Update(ctx, w); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		e.logger.Warn("Failed to change wallet status", "wallet_ref", walletRef, "status", status, "error", err)
		return nil, err
	}

	e.logger.Info("Wallet status changed", "wallet_ref", walletRef, "status", status)
	return result, nil
}

// GetLimits reports the wallet's limits as of now, with stale counters shown reset
func (e *LedgerEngine) GetLimits(ctx context.Context, walletRef string) (*limit.Limit, error) {
	var result *limit.Limit
	err := e.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		w, err := s.Wallets.GetByReference(ctx, walletRef)
		if err != nil {
			return err
		}
		l, err := e.limits.Snapshot(ctx, s.Limits, w.ID, e.now())
		result = l
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *LedgerEngine) UpdateLimits(ctx context.Context, walletRef string, caps limit.Caps) (*limit.Limit, error) {
	if err := caps.Validate(); err != nil {
		return nil, err
	}

	var result *limit.Limit
	err := e.execute(ctx, "update_limits", func(ctx context.Context, s unitofwork.Stores) error {
		w, err := s.Wallets.GetByReference(ctx, walletRef)
		if err != nil {
			return err
		}
		l, err := e.limits.UpdateCaps(ctx, s.Limits, w.ID, caps, e.now())
		result = l
		return err
	})
	if err != nil {
		e.logger.Warn("Failed to update limits", "wallet_ref", walletRef, "error", err)
		return nil, err
	}

	e.logger.Info("Limits updated",
		"wallet_ref", walletRef,
		"daily_limit", caps.Daily.String(),
		"monthly_limit", caps.Monthly.String(),
		"per_transaction_limit", caps.PerTransaction.String(),
	)
	return result, nil
}
