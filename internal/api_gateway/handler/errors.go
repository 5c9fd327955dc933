package handler

import (
	"log/slog"
	"net/http"

	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/gin-gonic/gin"
)

// StatusFor maps an engine error kind to its HTTP status
func StatusFor(kind service.ErrorKind) int {
	switch kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInactiveWallet, service.KindInsufficientBalance, service.KindLimitExceeded:
		return http.StatusUnprocessableEntity
	case service.KindInvalidState, service.KindConflict:
		return http.StatusConflict
	case service.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondLedgerError writes the engine error using its kind as the error code.
// Store failures are logged and hidden behind a generic 500.
func RespondLedgerError(c *gin.Context, logger *slog.Logger, err error) {
	kind := service.KindOf(err)
	status := StatusFor(kind)

	if status == http.StatusInternalServerError {
		logger.Error("Ledger operation failed", "path", c.FullPath(), "error", err)
		RespondInternalError(c)
		return
	}

	logger.Warn("Ledger operation rejected", "path", c.FullPath(), "kind", kind, "error", err)
	RespondWithError(c, status, ErrorInfo{
		Code:      string(kind),
		Message:   err.Error(),
		Retryable: kind.Retryable(),
	})
}
