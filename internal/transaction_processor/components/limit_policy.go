package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LimitPolicyImpl struct {
	defaults limit.Caps
	logger   *slog.Logger
}

func NewLimitPolicy(defaults limit.Caps, logger *slog.Logger) service.LimitPolicy {
	return &LimitPolicyImpl{
		defaults: defaults,
		logger:   logger,
	}
}

// CheckAndReserve validates amount against the wallet's caps and records it as spent.
// The limit row stays locked until the caller's unit of work ends.
func (p *LimitPolicyImpl) CheckAndReserve(ctx context.Context, limits limit.Repository, w *wallet.Wallet, amount decimal.Decimal, occursOn time.Time) (*limit.Limit, error) {
	l, err := p.lockOrCreate(ctx, limits, w.ID, occursOn)
	if err != nil {
		return nil, err
	}

	if l.ResetIfStale(occursOn) {
		p.logger.Info("Limit counters reset",
			"wallet_ref", w.Reference,
			"daily_reset", l.LastDailyReset.Format(time.DateOnly),
			"monthly_reset", l.LastMonthlyReset.Format(time.DateOnly),
		)
	}

	if err := l.Check(amount); err != nil {
		p.logger.Warn("Limit check failed", "wallet_ref", w.Reference, "amount", amount.String(), "error", err)
		return nil, err
	}

	l.Reserve(amount, occursOn)
	if err := limits.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Ensure creates the wallet's limit row with the default caps if it has none
func (p *LimitPolicyImpl) Ensure(ctx context.Context, limits limit.Repository, walletID uuid.UUID, now time.Time) (*limit.Limit, error) {
	l := limit.New(walletID, p.defaults, now)
	if err := limits.Create(ctx, l); err != nil {
		return nil, err
	}
	return limits.Get(ctx, walletID)
}

// Snapshot returns the limits as they would apply at now without persisting anything.
// A wallet with no row reports the default caps.
func (p *LimitPolicyImpl) Snapshot(ctx context.Context, limits limit.Repository, walletID uuid.UUID, now time.Time) (*limit.Limit, error) {
	l, err := limits.Get(ctx, walletID)
	if errors.Is(err, limit.ErrLimitNotFound{}) {
		return limit.New(walletID, p.defaults, now), nil
	}
	if err != nil {
		return nil, err
	}
	l.ResetIfStale(now)
	return l, nil
}

func (p *LimitPolicyImpl) UpdateCaps(ctx context.Context, limits limit.Repository, walletID uuid.UUID, caps limit.Caps, now time.Time) (*limit.Limit, error) {
	l, err := p.lockOrCreate(ctx, limits, walletID, now)
	if err != nil {
		return nil, err
	}
	l.ResetIfStale(now)
	if err := l.ApplyCaps(caps, now); err != nil {
		return nil, err
	}
	if err := limits.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (p *LimitPolicyImpl) lockOrCreate(ctx context.Context, limits limit.Repository, walletID uuid.UUID, now time.Time) (*limit.Limit, error) {
	l, err := limits.GetForUpdate(ctx, walletID)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, limit.ErrLimitNotFound{}) {
		return nil, err
	}

	p.logger.Info("Creating default limits", "wallet_id", walletID.String())
	if err := limits.Create(ctx, limit.New(walletID, p.defaults, now)); err != nil {
		return nil, err
	}
	return limits.GetForUpdate(ctx, walletID)
}
