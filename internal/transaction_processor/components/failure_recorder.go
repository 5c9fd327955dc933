package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
)

type FailureRecorderImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
	now       func() time.Time
}

func NewFailureRecorder(auditRepo audit.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		auditRepo: auditRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// RecordFailure stores a rejected command in the audit store
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, command *shared.LedgerCommand, kind service.ErrorKind, cause error) error {
	logger := r.logger
	if command.RequestID != "" {
		logger = r.logger.With("request_id", command.RequestID)
	}

	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}

	logger.Info("Recording rejected command",
		"command_id", command.CommandID,
		"operation", command.Operation,
		"kind", kind,
		"reason", reason,
	)

	rejection := &audit.Rejection{
		CommandID:     command.CommandID,
		Operation:     string(command.Operation),
		WalletRef:     command.WalletRef,
		Amount:        command.Amount,
		ErrorKind:     string(kind),
		FailureReason: reason,
		RequestID:     command.RequestID,
		RejectedAt:    r.now().UTC(),
	}
	if err := r.auditRepo.RecordRejection(ctx, rejection); err != nil {
		logger.Error("Failed to record rejected command", "command_id", command.CommandID, "error", err)
		return err
	}

	logger.Info("Successfully recorded rejected command", "command_id", command.CommandID)
	return nil
}
