package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const limitColumns = `wallet_id, daily_limit, monthly_limit, per_transaction_limit, daily_spent, monthly_spent,
		last_daily_reset, last_monthly_reset, updated_at`

// LimitRepository implements the limit.Repository interface for PostgreSQL
type LimitRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLimitRepository creates a limit repository bound to a pool or a transaction
func NewLimitRepository(logger *slog.Logger, querier persistence.Querier) *LimitRepository {
	return &LimitRepository{
		querier: querier,
		logger:  logger,
	}
}

func (r *LimitRepository) Get(ctx context.Context, walletID uuid.UUID) (*limit.Limit, error) {
	query := `SELECT ` + limitColumns + ` FROM wallet_limits WHERE wallet_id = $1`
	return r.getOne(ctx, query, walletID)
}

// GetForUpdate locks the wallet's limit row until the transaction ends
func (r *LimitRepository) GetForUpdate(ctx context.Context, walletID uuid.UUID) (*limit.Limit, error) {
	query := `SELECT ` + limitColumns + ` FROM wallet_limits WHERE wallet_id = $1 FOR UPDATE`
	return r.getOne(ctx, query, walletID)
}

func (r *LimitRepository) getOne(ctx context.Context, query string, walletID uuid.UUID) (*limit.Limit, error) {
	var l limit.Limit
	err := r.querier.QueryRow(ctx, query, walletID).Scan(
		&l.WalletID,
		&l.DailyLimit,
		&l.MonthlyLimit,
		&l.PerTransactionLimit,
		&l.DailySpent,
		&l.MonthlySpent,
		&l.LastDailyReset,
		&l.LastMonthlyReset,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, limit.ErrLimitNotFound{WalletID: walletID}
		}
		r.logger.Error("Failed to get transaction limits", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction limits: %w", classify(err))
	}
	return &l, nil
}

// Create inserts the limit row; a row created concurrently for the same wallet wins
func (r *LimitRepository) Create(ctx context.Context, l *limit.Limit) error {
	query := `
		INSERT INTO wallet_limits (` + limitColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (wallet_id) DO NOTHING
	`

	_, err := r.querier.Exec(ctx, query,
		l.WalletID,
		l.DailyLimit,
		l.MonthlyLimit,
		l.PerTransactionLimit,
		l.DailySpent,
		l.MonthlySpent,
		l.LastDailyReset,
		l.LastMonthlyReset,
		l.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction limits", "wallet_id", l.WalletID.String(), "error", err)
		return fmt.Errorf("failed to create transaction limits: %w", classify(err))
	}

	return nil
}

// Save overwrites caps, counters and reset watermarks
func (r *LimitRepository) Save(ctx context.Context, l *limit.Limit) error {
	query := `
		UPDATE wallet_limits
		SET daily_limit = $1, monthly_limit = $2, per_transaction_limit = $3,
			daily_spent = $4, monthly_spent = $5, last_daily_reset = $6, last_monthly_reset = $7, updated_at = $8
		WHERE wallet_id = $9
	`

	result, err := r.querier.Exec(ctx, query,
		l.DailyLimit,
		l.MonthlyLimit,
		l.PerTransactionLimit,
		l.DailySpent,
		l.MonthlySpent,
		l.LastDailyReset,
		l.LastMonthlyReset,
		l.UpdatedAt,
		l.WalletID,
	)
	if err != nil {
		r.logger.Error("Failed to save transaction limits", "wallet_id", l.WalletID.String(), "error", err)
		return fmt.Errorf("failed to save transaction limits: %w", classify(err))
	}

	if result.RowsAffected() == 0 {
		return limit.ErrLimitNotFound{WalletID: l.WalletID}
	}

	return nil
}
