package shared

import "errors"

var (
	// ErrConflict marks lock or version contention. Callers may retry.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrStoreFailure marks an unexpected persistence failure
	ErrStoreFailure = errors.New("store failure")

	// ErrValueTooLong marks a value wider than its store column. Retrying cannot help.
	ErrValueTooLong = errors.New("value too long for the store")

	ErrInvalidAmount   = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
)
