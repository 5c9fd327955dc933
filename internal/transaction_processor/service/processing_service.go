package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

type ProcessingServiceImpl struct {
	engine          LedgerService
	validator       CommandValidator
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	engine LedgerService,
	validator CommandValidator,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) CommandProcessor {
	return &ProcessingServiceImpl{
		engine:          engine,
		validator:       validator,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessCommand runs one ledger command.
// Business rejections are recorded and acknowledged. Conflicts and store failures are
// returned; the consumer retries the same message and dead-letters it if it keeps failing.
func (s *ProcessingServiceImpl) ProcessCommand(ctx context.Context, command *shared.LedgerCommand) error {
	logger := s.logger
	if command.RequestID != "" {
		logger = s.logger.With("request_id", command.RequestID)
	}

	logger.Info("Processing ledger command", "command_id", command.CommandID, "operation", command.Operation)

	// 1. Validate the command
	if err := s.validator.Validate(ctx, command); err != nil {
		logger.Error("Command validation failed", "command_id", command.CommandID, "error", err)
		s.recordFailure(ctx, logger, command, KindInvalid, err)
		return nil // Return nil to Kafka consumer to acknowledge the message
	}

	// 2. Run it through the engine
	entry, err := s.dispatch(ctx, command)
	if err != nil {
		kind := KindOf(err)
		if kind.Retryable() {
			logger.Error("Retryable failure processing command", "command_id", command.CommandID, "kind", kind, "error", err)
			return fmt.Errorf("failed to process command %s: %w", command.CommandID, err)
		}

		logger.Warn("Command rejected", "command_id", command.CommandID, "kind", kind, "error", err)
		s.recordFailure(ctx, logger, command, kind, err)
		return nil
	}

	logger.Info("Ledger command processed",
		"command_id", command.CommandID,
		"reference", entry.Reference,
		"status", entry.Status,
	)
	return nil
}

func (s *ProcessingServiceImpl) dispatch(ctx context.Context, command *shared.LedgerCommand) (*ledger.Entry, error) {
	var amount decimal.Decimal
	if command.Amount != "" {
		parsed, err := decimal.NewFromString(command.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q", shared.ErrInvalidCommand, command.Amount)
		}
		amount = parsed
	}

	switch command.Operation {
	case shared.OperationCredit, shared.OperationTopUp:
		return s.engine.Credit(ctx, CreditRequest{
			WalletRef:      command.WalletRef,
			Amount:         amount,
			PaymentMethod:  command.PaymentMethod,
			Description:    command.Description,
			Type:           shared.EntryType(command.Operation),
			IdempotencyKey: command.CommandID,
		})
	case shared.OperationDebit, shared.OperationWithdrawal:
		return s.engine.Debit(ctx, DebitRequest{
			WalletRef:      command.WalletRef,
			Amount:         amount,
			PaymentMethod:  command.PaymentMethod,
			Description:    command.Description,
			Type:           shared.EntryType(command.Operation),
			IdempotencyKey: command.CommandID,
		})
	case shared.OperationPayment:
		return s.engine.Payment(ctx, s.paymentRequest(command, amount))
	case shared.OperationAuthorize:
		return s.engine.Authorize(ctx, s.paymentRequest(command, amount))
	case shared.OperationSettle:
		return s.engine.Settle(ctx, command.TransactionRef)
	case shared.OperationTransfer:
		return s.engine.Transfer(ctx, TransferRequest{
			SourceRef:      command.WalletRef,
			DestinationRef: command.DestinationRef,
			Amount:         amount,
			Description:    command.Description,
			IdempotencyKey: command.CommandID,
		})
	case shared.OperationCancel:
		return s.engine.Cancel(ctx, command.TransactionRef)
	case shared.OperationRefund:
		return s.engine.Refund(ctx, RefundRequest{
			TransactionRef: command.TransactionRef,
			Reason:         command.Reason,
			IdempotencyKey: command.CommandID,
		})
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidCommand, command.Operation)
	}
}

func (s *ProcessingServiceImpl) paymentRequest(command *shared.LedgerCommand, amount decimal.Decimal) PaymentRequest {
	return PaymentRequest{
		WalletRef:      command.WalletRef,
		Amount:         amount,
		PaymentMethod:  command.PaymentMethod,
		Description:    command.Description,
		IdempotencyKey: command.CommandID,
	}
}

func (s *ProcessingServiceImpl) recordFailure(ctx context.Context, logger *slog.Logger, command *shared.LedgerCommand, kind ErrorKind, cause error) {
	if err := s.failureRecorder.RecordFailure(ctx, command, kind, cause); err != nil {
		logger.Error("Failed to record command failure", "command_id", command.CommandID, "error", err)
	}
}
