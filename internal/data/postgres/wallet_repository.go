package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/enterprise-wallet-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const walletColumns = `id, reference, owner_ref, balance, currency, status, wallet_type, version, created_at, updated_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a wallet repository bound to a pool or a transaction
func NewWalletRepository(logger *slog.Logger, querier persistence.Querier) *WalletRepository {
	return &WalletRepository{
		querier: querier,
		logger:  logger,
	}
}

// Create stores a new wallet. A reference collision yields ErrDuplicateReference.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.Reference,
		w.OwnerRef,
		w.Balance,
		w.Currency,
		w.Status,
		w.Type,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return wallet.ErrDuplicateReference{Reference: w.Reference}
		}
		r.logger.Error("Failed to create wallet", "wallet_ref", w.Reference, "error", err)
		return fmt.Errorf("failed to create wallet: %w", classify(err))
	}

	return nil
}

// GetByID retrieves a wallet by its internal id
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{ID: id}
		}
		r.logger.Error("Failed to get wallet", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", classify(err))
	}

	return w, nil
}

// GetByReference retrieves a wallet by its public reference
func (r *WalletRepository) GetByReference(ctx context.Context, reference string) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE reference = $1`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get wallet by reference", "wallet_ref", reference, "error", err)
		return nil, fmt.Errorf("failed to get wallet by reference: %w", classify(err))
	}

	return w, nil
}

// ListByOwner returns an owner's wallets, oldest first
func (r *WalletRepository) ListByOwner(ctx context.Context, ownerRef string) ([]*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_ref = $1 ORDER BY created_at ASC`

	rows, err := r.querier.Query(ctx, query, ownerRef)
	if err != nil {
		r.logger.Error("Failed to list wallets", "owner_ref", ownerRef, "error", err)
		return nil, fmt.Errorf("failed to list wallets: %w", classify(err))
	}
	defer rows.Close()

	var wallets []*wallet.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			r.logger.Error("Failed to scan wallet", "error", err)
			return nil, fmt.Errorf("failed to scan wallet: %w", classify(err))
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over wallets", "error", err)
		return nil, fmt.Errorf("error iterating over wallets: %w", classify(err))
	}

	return wallets, nil
}

// Update persists balance and status, guarded by the previous version
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, status = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`

	result, err := r.querier.Exec(ctx, query,
		w.Balance,
		w.Status,
		w.Version,
		w.UpdatedAt,
		w.ID,
		w.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet: %w", classify(err))
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: w.ID}
	}

	return nil
}

// LockForUpdate obtains a row lock held until the transaction ends.
// A wait longer than the transaction's lock_timeout surfaces as shared.ErrConflict.
func (r *WalletRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{ID: id}
		}
		r.logger.Warn("Failed to lock wallet for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", classify(err))
	}

	return w, nil
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(
		&w.ID,
		&w.Reference,
		&w.OwnerRef,
		&w.Balance,
		&w.Currency,
		&w.Status,
		&w.Type,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
