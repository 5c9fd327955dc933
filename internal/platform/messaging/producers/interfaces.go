package producers

import (
	"context"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// CommandPublisher hands ledger commands to the processor
type CommandPublisher interface {
	PublishCommand(ctx context.Context, command *shared.LedgerCommand) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ CommandPublisher    = (*CommandProducer)(nil)
	_ DeadLetterPublisher = (*DLQProducer)(nil)
	_ KafkaWriter         = (*kafka.Writer)(nil)
)
