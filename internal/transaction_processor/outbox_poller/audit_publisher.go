package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
)

// ErrUndecodablePayload marks a message that can never be published
var ErrUndecodablePayload = errors.New("undecodable outbox payload")

// AuditPublisher copies outbox snapshots into the audit store
type AuditPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

type AuditPublisherImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

func NewAuditPublisher(auditRepo audit.Repository, logger *slog.Logger) AuditPublisher {
	return &AuditPublisherImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Publish upserts the entry snapshot carried by message. Replaying a message is harmless.
func (p *AuditPublisherImpl) Publish(ctx context.Context, message *outbox.Message) error {
	entry, err := message.GetLedgerEntry()
	if err != nil {
		p.logger.Error("Failed to decode ledger entry from outbox payload",
			"outbox_id", message.ID, "entry_reference", message.EntryReference, "error", err,
		)
		return fmt.Errorf("%w: outbox %d: %v", ErrUndecodablePayload, message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationRef != "" {
		logger = p.logger.With("correlation_ref", entry.CorrelationRef)
	}

	if err := p.auditRepo.UpsertEntry(ctx, entry); err != nil {
		logger.Error("Failed to upsert audit entry", "outbox_id", message.ID, "entry_reference", entry.Reference, "error", err)
		return fmt.Errorf("failed to publish entry %s to audit store: %w", entry.Reference, err)
	}

	logger.Debug("Published outbox message to audit store",
		"outbox_id", message.ID, "entry_reference", entry.Reference, "status", entry.Status,
	)
	return nil
}
