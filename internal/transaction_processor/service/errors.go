package service

import (
	"errors"
	"fmt"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
)

var (
	ErrSameWallet       = errors.New("source and destination wallet must differ")
	ErrCurrencyMismatch = errors.New("source and destination wallet currencies differ")
	ErrInvalidRequest   = errors.New("invalid ledger request")
)

// ErrorKind is the caller-facing classification of an engine failure
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindInactiveWallet      ErrorKind = "INACTIVE_WALLET"
	KindInsufficientBalance ErrorKind = "INSUFFICIENT_BALANCE"
	KindLimitExceeded       ErrorKind = "LIMIT_EXCEEDED"
	KindInvalidState        ErrorKind = "INVALID_STATE"
	KindConflict            ErrorKind = "CONFLICT"
	KindInvalid             ErrorKind = "INVALID"
	KindStoreFailure        ErrorKind = "STORE_FAILURE"
)

// Retryable reports whether the same request may succeed if sent again unchanged
func (k ErrorKind) Retryable() bool {
	return k == KindConflict || k == KindStoreFailure
}

// ErrDestinationWalletNotFound indicates the transfer destination reference is unknown
type ErrDestinationWalletNotFound struct {
	Reference string
}

func (e ErrDestinationWalletNotFound) Error() string {
	return fmt.Sprintf("destination wallet not found: %s", e.Reference)
}

func (e ErrDestinationWalletNotFound) Unwrap() error {
	return wallet.ErrWalletNotFound{Reference: e.Reference}
}

// ErrDestinationWalletNotActive indicates the transfer destination cannot take credits
type ErrDestinationWalletNotActive struct {
	Reference string
	Status    wallet.Status
}

func (e ErrDestinationWalletNotActive) Error() string {
	return fmt.Sprintf("destination wallet %s is not active (status %s)", e.Reference, e.Status)
}

func (e ErrDestinationWalletNotActive) Unwrap() error {
	return wallet.ErrWalletNotActive{Reference: e.Reference, Status: e.Status}
}

// KindOf classifies err. Anything unrecognised is a store failure.
func KindOf(err error) ErrorKind {
	var (
		notActive    wallet.ErrWalletNotActive
		insufficient wallet.ErrInsufficientBalance
		exceeded     limit.ErrLimitExceeded
		invalidState ledger.ErrInvalidState
		invalidType  ledger.ErrInvalidEntryType
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, wallet.ErrWalletNotFound{}), errors.Is(err, ledger.ErrEntryNotFound{}):
		return KindNotFound
	case errors.As(err, &notActive):
		return KindInactiveWallet
	case errors.As(err, &insufficient):
		return KindInsufficientBalance
	case errors.As(err, &exceeded):
		return KindLimitExceeded
	case errors.As(err, &invalidState):
		return KindInvalidState
	case errors.Is(err, shared.ErrConflict):
		return KindConflict
	case errors.As(err, &invalidType),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrSameWallet),
		errors.Is(err, ErrCurrencyMismatch),
		errors.Is(err, shared.ErrInvalidAmount),
		errors.Is(err, shared.ErrValueTooLong),
		errors.Is(err, shared.ErrInvalidCurrency),
		errors.Is(err, shared.ErrInvalidCommand),
		errors.Is(err, limit.ErrInvalidCaps),
		errors.Is(err, wallet.ErrInvalidStatus),
		errors.Is(err, wallet.ErrInvalidWalletType),
		errors.Is(err, wallet.ErrEmptyOwnerRef),
		errors.Is(err, wallet.ErrOwnerRefTooLong):
		return KindInvalid
	default:
		return KindStoreFailure
	}
}
