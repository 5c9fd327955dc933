package handler

import (
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/api_gateway/middleware"
	gateway "github.com/enterprise-wallet-ledger/internal/api_gateway/service"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// CommandHandler accepts operations for asynchronous processing
type CommandHandler struct {
	commands gateway.CommandService
	logger   *slog.Logger
}

func NewCommandHandler(logger *slog.Logger, commands gateway.CommandService) *CommandHandler {
	return &CommandHandler{
		commands: commands,
		logger:   logger,
	}
}

// Submit answers 202 with the command ID; the outcome is visible later through
// GET /transactions or the rejected operations audit
func (h *CommandHandler) Submit(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	commandID := req.CommandID
	if commandID == "" {
		commandID = c.GetHeader(IdempotencyKeyHeader)
	}
	if len(commandID) > shared.MaxIdempotencyKeyLength {
		RespondBadRequest(c, fmt.Sprintf("%s must be at most %d characters", IdempotencyKeyHeader, shared.MaxIdempotencyKeyLength))
		return
	}

	command := &shared.LedgerCommand{
		CommandID:      commandID,
		Operation:      shared.Operation(req.Operation),
		WalletRef:      req.WalletRef,
		DestinationRef: req.DestinationRef,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		TransactionRef: req.TransactionRef,
		Reason:         req.Reason,
		RequestID:      middleware.GetRequestID(c),
	}

	id, err := h.commands.Submit(c.Request.Context(), command)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}

	RespondAccepted(c, gin.H{
		"command_id": id,
		"status":     "QUEUED",
	})
}
