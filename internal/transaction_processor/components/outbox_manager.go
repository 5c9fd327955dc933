package components

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
)

type OutboxManagerImpl struct {
	logger *slog.Logger
}

func NewOutboxManager(logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		logger: logger,
	}
}

// Record writes an outbox message snapshotting the entry.
// repo must be bound to the same unit of work as the entry change.
func (m *OutboxManagerImpl) Record(ctx context.Context, repo outbox.Repository, entry *ledger.Entry, now time.Time) error {
	message, err := outbox.NewMessage(entry, now)
	if err != nil {
		m.logger.Error("Failed to create new outbox message (marshal payload)",
			"reference", entry.Reference,
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for entry %s: %w", entry.Reference, err)
	}

	if err := repo.Create(ctx, message); err != nil {
		m.logger.Error("Failed to create outbox message",
			"reference", entry.Reference,
			"wallet_id", entry.WalletID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for entry %s: %w", entry.Reference, err)
	}

	m.logger.Debug("Outbox message created",
		"reference", entry.Reference,
		"status", entry.Status,
		"outbox_id", message.ID,
	)
	return nil
}
