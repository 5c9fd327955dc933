package service

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
)

// CommandService queues ledger commands for asynchronous processing
type CommandService interface {
	// Submit validates the command, assigns a CommandID when missing and publishes it.
	// The returned CommandID is the idempotency key of the resulting entry.
	Submit(ctx context.Context, command *shared.LedgerCommand) (string, error)
}
