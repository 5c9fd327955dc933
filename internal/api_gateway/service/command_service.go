package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/platform/messaging/producers"
	processor "github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/google/uuid"
)

// CommandServiceImpl implements the CommandService interface
type CommandServiceImpl struct {
	validator processor.CommandValidator
	producer  producers.CommandPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewCommandService(logger *slog.Logger, validator processor.CommandValidator, producer producers.CommandPublisher) CommandService {
	return &CommandServiceImpl{
		validator: validator,
		producer:  producer,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *CommandServiceImpl) Submit(ctx context.Context, command *shared.LedgerCommand) (string, error) {
	if command.CommandID == "" {
		command.CommandID = uuid.New().String()
	}
	command.Timestamp = s.now().UTC()

	logger := s.logger
	if command.RequestID != "" {
		logger = s.logger.With("request_id", command.RequestID)
	}

	if err := s.validator.Validate(ctx, command); err != nil {
		return "", err
	}

	if err := s.producer.PublishCommand(ctx, command); err != nil {
		logger.Error("Failed to publish ledger command",
			"command_id", command.CommandID,
			"operation", command.Operation,
			"error", err,
		)
		return "", err
	}

	logger.Info("Ledger command published",
		"command_id", command.CommandID,
		"operation", command.Operation,
		"wallet_ref", command.WalletRef,
	)
	return command.CommandID, nil
}
