package outbox

import (
	"encoding/json"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Message is written in the same unit of work as the ledger change it describes,
// and is later relayed to the audit store
type Message struct {
	ID             int64               `json:"id"`
	EntryID        uuid.UUID           `json:"entry_id"`
	EntryReference string              `json:"entry_reference"`
	WalletID       uuid.UUID           `json:"wallet_id"`
	Payload        json.RawMessage     `json:"payload"`
	Status         shared.OutboxStatus `json:"status"`
	Attempts       int                 `json:"attempts"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAttemptAt  *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage snapshots the entry as it is at commit time
func NewMessage(entry *ledger.Entry, now time.Time) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:        entry.ID,
		EntryReference: entry.Reference,
		WalletID:       entry.WalletID,
		Payload:        payload,
		Status:         shared.OutboxStatusPending,
		CreatedAt:      now,
	}, nil
}

func (m *Message) IncrementAttempts(now time.Time) {
	m.Attempts++
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed(now time.Time) {
	m.Status = shared.OutboxStatusProcessed
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed(now time.Time) {
	m.Status = shared.OutboxStatusFailedToPublish
	m.LastAttemptAt = &now
}

// GetLedgerEntry extracts the ledger entry from the payload
func (m *Message) GetLedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
