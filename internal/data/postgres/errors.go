// Package postgres provides PostgreSQL implementations of the domain repositories
// and the unit of work that binds them to one transaction.
package postgres

import (
	"errors"
	"fmt"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgStringTooLong        = "22001"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

// classify tags a driver error as contention (retryable), an over-wide value or store failure,
// keeping the cause in the chain
func classify(err error) error {
	if err == nil || errors.Is(err, shared.ErrConflict) || errors.Is(err, shared.ErrStoreFailure) {
		return err
	}
	switch pgCode(err) {
	case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %w", shared.ErrConflict, err)
	case pgStringTooLong:
		return fmt.Errorf("%w: %w", shared.ErrValueTooLong, err)
	default:
		return fmt.Errorf("%w: %w", shared.ErrStoreFailure, err)
	}
}
