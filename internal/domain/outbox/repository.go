package outbox

import (
	"context"
	"strconv"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
)

// Repository stores entry snapshots awaiting projection into the audit store.
// Create runs inside the unit of work that changed the entry.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	// GetPending returns PENDING messages oldest first, so snapshots of one entry keep their commit order
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
}

// ErrMessageNotFound indicates an unknown outbox message id
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message " + strconv.FormatInt(e.ID, 10) + " not found"
}
