package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/shopspring/decimal"
)

type CommandValidatorImpl struct {
	logger *slog.Logger
}

func NewCommandValidator(logger *slog.Logger) service.CommandValidator {
	return &CommandValidatorImpl{
		logger: logger,
	}
}

// Validate checks that a command carries the fields its operation needs
func (v *CommandValidatorImpl) Validate(ctx context.Context, command *shared.LedgerCommand) error {
	logger := v.logger
	if command.RequestID != "" {
		logger = v.logger.With("request_id", command.RequestID)
	}

	if err := v.validate(command); err != nil {
		logger.Error("Invalid ledger command",
			"command_id", command.CommandID,
			"operation", command.Operation,
			"error", err,
		)
		return err
	}
	return nil
}

func (v *CommandValidatorImpl) validate(command *shared.LedgerCommand) error {
	if command.CommandID == "" {
		return fmt.Errorf("%w: command_id is required", shared.ErrInvalidCommand)
	}
	if err := checkWidths(command); err != nil {
		return err
	}

	switch command.Operation {
	case shared.OperationCredit, shared.OperationTopUp, shared.OperationDebit, shared.OperationWithdrawal,
		shared.OperationPayment, shared.OperationAuthorize:
		if command.WalletRef == "" {
			return fmt.Errorf("%w: wallet_ref is required for %s", shared.ErrInvalidCommand, command.Operation)
		}
		return validateAmount(command.Amount)

	case shared.OperationTransfer:
		if command.WalletRef == "" || command.DestinationRef == "" {
			return fmt.Errorf("%w: wallet_ref and destination_ref are required for TRANSFER", shared.ErrInvalidCommand)
		}
		return validateAmount(command.Amount)

	case shared.OperationSettle, shared.OperationCancel, shared.OperationRefund:
		if command.TransactionRef == "" {
			return fmt.Errorf("%w: transaction_ref is required for %s", shared.ErrInvalidCommand, command.Operation)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidCommand, command.Operation)
	}
}

func checkWidths(command *shared.LedgerCommand) error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"command_id", command.CommandID, shared.MaxIdempotencyKeyLength},
		{"wallet_ref", command.WalletRef, shared.MaxReferenceLength},
		{"destination_ref", command.DestinationRef, shared.MaxReferenceLength},
		{"transaction_ref", command.TransactionRef, shared.MaxReferenceLength},
		{"payment_method", command.PaymentMethod, shared.MaxPaymentMethodLength},
	}
	for _, f := range fields {
		if len(f.value) > f.max {
			return fmt.Errorf("%w: %s must be at most %d characters", shared.ErrInvalidCommand, f.name, f.max)
		}
	}
	return nil
}

func validateAmount(raw string) error {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%w: amount %q is not a decimal", shared.ErrInvalidCommand, raw)
	}
	return shared.ValidateAmount(amount)
}
