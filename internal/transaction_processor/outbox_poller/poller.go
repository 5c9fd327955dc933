package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
)

// Poller relays pending outbox messages to the audit store in creation order
type Poller struct {
	uow              unitofwork.UnitOfWork
	publisher        AuditPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	uow unitofwork.UnitOfWork,
	publisher AuditPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		uow:              uow,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.ProcessPending(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// ProcessPending publishes one batch. Once a message of an entry fails, later
// snapshots of the same entry wait for the next batch so the audit copy never regresses.
func (p *Poller) ProcessPending(ctx context.Context) error {
	var messages []*outbox.Message
	err := p.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		var err error
		messages, err = s.Outbox.GetPending(ctx, p.batchSize)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	blocked := make(map[string]bool)
	for _, msg := range messages {
		if blocked[msg.EntryReference] {
			continue
		}
		if err := p.relay(ctx, msg); err != nil {
			blocked[msg.EntryReference] = true
		}
	}
	return nil
}

func (p *Poller) relay(ctx context.Context, msg *outbox.Message) error {
	logger := p.logger.With("outbox_id", msg.ID, "entry_reference", msg.EntryReference)

	publishErr := p.publisher.Publish(ctx, msg)
	if publishErr == nil {
		err := p.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
			return s.Outbox.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed)
		})
		if err != nil {
			logger.Error("Audit write OK, but failed to mark outbox message as PROCESSED", "error", err)
			return err
		}
		logger.Info("Outbox message published and marked as PROCESSED")
		return nil
	}

	giveUp := errors.Is(publishErr, ErrUndecodablePayload) || msg.Attempts+1 >= p.maxRetryAttempts
	logger.Error("Failed to publish outbox message",
		"current_attempts", msg.Attempts,
		"give_up", giveUp,
		"error", publishErr,
	)

	err := p.uow.Execute(ctx, func(ctx context.Context, s unitofwork.Stores) error {
		if err := s.Outbox.IncrementAttempts(ctx, msg.ID); err != nil {
			return err
		}
		if giveUp {
			return s.Outbox.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish)
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to record outbox publish attempt", "error", err)
	} else if giveUp {
		logger.Warn("Outbox message marked as FAILED_TO_PUBLISH", "attempts_made", msg.Attempts+1)
	}
	return publishErr
}
