package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/platform/messaging/producers"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
)

// CommandHandler decodes ledger commands from Kafka and hands them to the processor
type CommandHandler struct {
	processor service.CommandProcessor
	producer  producers.DeadLetterPublisher
	logger    *slog.Logger
}

// NewCommandHandler creates a new handler; producer may be nil when the DLQ is disabled
func NewCommandHandler(
	logger *slog.Logger,
	processor service.CommandProcessor,
	producer producers.DeadLetterPublisher,
) *CommandHandler {
	return &CommandHandler{
		processor: processor,
		producer:  producer,
		logger:    logger,
	}
}

// HandleMessage returns nil when the offset may be committed
func (h *CommandHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var command shared.LedgerCommand
	if err := json.Unmarshal(value, &command); err != nil {
		return h.deadLetter(ctx, key, value, err)
	}

	logger := h.logger
	if command.RequestID != "" {
		logger = h.logger.With("request_id", command.RequestID)
	}

	logger.Info("Received ledger command",
		"command_id", command.CommandID,
		"operation", command.Operation,
		"wallet_ref", command.WalletRef,
		"amount", command.Amount,
	)

	if err := h.processor.ProcessCommand(ctx, &command); err != nil {
		logger.Error("Failed to process command, it will be retried",
			"command_id", command.CommandID,
			"error", err,
		)
		return fmt.Errorf("processing command %s failed: %w", command.CommandID, err)
	}

	logger.Info("Successfully processed command", "command_id", command.CommandID)
	return nil
}

// HandleExhausted parks a command that kept failing with a retryable error on the DLQ.
// Without a DLQ it returns an error so the command stays uncommitted.
func (h *CommandHandler) HandleExhausted(ctx context.Context, key []byte, value []byte, cause error) error {
	if h.producer == nil {
		return fmt.Errorf("no dead letter queue for exhausted command %s: %w", string(key), cause)
	}

	reason := fmt.Sprintf("retries exhausted: %s", cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		return fmt.Errorf("failed to dead-letter exhausted command: %w", err)
	}

	h.logger.Warn("Dead-lettered command after exhausting retries",
		"message_key", string(key),
		"error", cause,
	)
	return nil
}

func (h *CommandHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Failed to decode ledger command", "error", cause, "message_key", string(key))

	if h.producer == nil {
		return fmt.Errorf("failed to unmarshal message value: %w", cause)
	}

	reason := fmt.Sprintf("undecodable ledger command: %s", cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish undecodable command to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to unmarshal message value: %w", cause)
	}
	return nil
}
