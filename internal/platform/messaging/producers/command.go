package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// CommandProducer publishes ledger commands for the processor.
// Messages are keyed by wallet reference so commands for one wallet stay on one partition.
type CommandProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewCommandProducer creates the API side producer and ensures the command topic exists
func NewCommandProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*CommandProducer, error) {
	if cfg.CommandTopic == "" {
		return nil, fmt.Errorf("kafka command topic is not configured")
	}

	err := ensureTopic(cfg.Brokers, TopicSpec{
		Name:              cfg.CommandTopic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure command topic %s exists: %w", cfg.CommandTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.CommandTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.MaxWait,
	}

	return &CommandProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.CommandTopic,
	}, nil
}

// PublishCommand writes one command, keyed by PartitionKey
func (p *CommandProducer) PublishCommand(ctx context.Context, command *shared.LedgerCommand) error {
	return p.Publish(ctx, PartitionKey(command), command)
}

func (p *CommandProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal command message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish command",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published command",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *CommandProducer) Close() error {
	p.logger.Info("Closing command producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close command writer for topic %s: %w", p.topic, err)
	}
	return nil
}

// PartitionKey picks the wallet a command touches first, falling back to the
// transaction reference for settle, cancel and refund
func PartitionKey(command *shared.LedgerCommand) string {
	if command.WalletRef != "" {
		return command.WalletRef
	}
	if command.TransactionRef != "" {
		return command.TransactionRef
	}
	return command.CommandID
}
