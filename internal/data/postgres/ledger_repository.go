package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, reference, correlation_ref, wallet_id, wallet_ref, counterparty_wallet_id, counterparty_ref,
		entry_type, amount, currency, balance_before, balance_after, status, fee, payment_method, description,
		idempotency_key, request_fingerprint, created_at, completed_at`

var (
	inflowTypes     = []string{string(shared.EntryTypeCredit), string(shared.EntryTypeTopUp), string(shared.EntryTypeTransferIn), string(shared.EntryTypeRefund)}
	appliedStatuses = []string{string(shared.EntryStatusCompleted), string(shared.EntryStatusRefunded)}
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a ledger repository bound to a pool or a transaction
func NewLedgerRepository(logger *slog.Logger, querier persistence.Querier) *LedgerRepository {
	return &LedgerRepository{
		querier: querier,
		logger:  logger,
	}
}

// Append inserts a new entry; a reference or idempotency key collision yields ErrDuplicateEntry
func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.Reference,
		e.CorrelationRef,
		e.WalletID,
		e.WalletRef,
		e.CounterpartyWalletID,
		e.CounterpartyRef,
		e.Type,
		e.Amount,
		e.Currency,
		e.BalanceBefore,
		e.BalanceAfter,
		e.Status,
		e.Fee,
		e.PaymentMethod,
		e.Description,
		e.IdempotencyKey,
		e.RequestFingerprint,
		e.CreatedAt,
		e.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateEntry{Reference: e.Reference}
		}
		r.logger.Error("Failed to append ledger entry", "reference", e.Reference, "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", classify(err))
	}

	return nil
}

// GetByReference retrieves an entry without locking it
func (r *LedgerRepository) GetByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE reference = $1`
	return r.getOne(ctx, query, reference, "get")
}

// LockByReference retrieves an entry and holds its row lock until the transaction ends
func (r *LedgerRepository) LockByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE reference = $1 FOR UPDATE`
	return r.getOne(ctx, query, reference, "lock")
}

func (r *LedgerRepository) getOne(ctx context.Context, query, reference, action string) (*ledger.Entry, error) {
	entry, err := scanEntry(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{Reference: reference}
		}
		r.logger.Error("Failed to "+action+" ledger entry", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to %s ledger entry: %w", action, classify(err))
	}
	return entry, nil
}

// FindByIdempotencyKey returns nil when no entry carries the key
func (r *LedgerRepository) FindByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	if key == "" {
		return nil, nil
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE idempotency_key = $1`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get ledger entry by idempotency key", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by idempotency key: %w", classify(err))
	}

	return entry, nil
}

// FindByCorrelation returns all entries sharing a correlation reference, in creation order
func (r *LedgerRepository) FindByCorrelation(ctx context.Context, correlationRef string) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE correlation_ref = $1
		ORDER BY created_at ASC, reference DESC
	`
	return r.query(ctx, "find ledger entries by correlation", query, correlationRef)
}

// FindByWallet returns a page of a wallet's entries, most recent first
func (r *LedgerRepository) FindByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE wallet_id = $1
		ORDER BY created_at DESC, reference DESC
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, "find ledger entries by wallet", query, walletID, limit, offset)
}

func (r *LedgerRepository) query(ctx context.Context, action, query string, args ...any) ([]*ledger.Entry, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to "+action, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", action, classify(err))
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", classify(err))
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", classify(err))
	}

	return entries, nil
}

// CountByWallet counts all of a wallet's entries regardless of status
func (r *LedgerRepository) CountByWallet(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE wallet_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, walletID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "wallet_id", walletID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", classify(err))
	}

	return count, nil
}

// AppliedTotals sums a wallet's COMPLETED and REFUNDED entries by direction
func (r *LedgerRepository) AppliedTotals(ctx context.Context, walletID uuid.UUID) (ledger.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE entry_type = ANY($2)), 0),
			COALESCE(SUM(amount) FILTER (WHERE NOT (entry_type = ANY($2))), 0)
		FROM ledger_entries
		WHERE wallet_id = $1 AND status = ANY($3)
	`

	var totals ledger.Totals
	err := r.querier.QueryRow(ctx, query, walletID, inflowTypes, appliedStatuses).Scan(&totals.Credits, &totals.Debits)
	if err != nil {
		r.logger.Error("Failed to sum ledger entries", "wallet_id", walletID.String(), "error", err)
		return ledger.Totals{}, fmt.Errorf("failed to sum ledger entries: %w", classify(err))
	}

	return totals, nil
}

// UpdateState persists a status transition. A row no longer in status from is reported as a conflict.
func (r *LedgerRepository) UpdateState(ctx context.Context, e *ledger.Entry, from shared.EntryStatus) error {
	query := `
		UPDATE ledger_entries
		SET status = $1, balance_before = $2, balance_after = $3, completed_at = $4
		WHERE reference = $5 AND status = $6
	`

	result, err := r.querier.Exec(ctx, query,
		e.Status,
		e.BalanceBefore,
		e.BalanceAfter,
		e.CompletedAt,
		e.Reference,
		from,
	)
	if err != nil {
		r.logger.Error("Failed to update ledger entry state", "reference", e.Reference, "error", err)
		return fmt.Errorf("failed to update ledger entry state: %w", classify(err))
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: ledger entry %s is no longer %s", shared.ErrConflict, e.Reference, from)
	}

	return nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.Reference,
		&e.CorrelationRef,
		&e.WalletID,
		&e.WalletRef,
		&e.CounterpartyWalletID,
		&e.CounterpartyRef,
		&e.Type,
		&e.Amount,
		&e.Currency,
		&e.BalanceBefore,
		&e.BalanceAfter,
		&e.Status,
		&e.Fee,
		&e.PaymentMethod,
		&e.Description,
		&e.IdempotencyKey,
		&e.RequestFingerprint,
		&e.CreatedAt,
		&e.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
