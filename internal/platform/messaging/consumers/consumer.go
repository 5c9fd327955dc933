package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler returns nil when the message may be committed
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ExhaustedHandler takes a message whose handler kept failing after every retry.
// It returns nil once the message is parked elsewhere and its offset may be committed.
type ExhaustedHandler func(ctx context.Context, key []byte, value []byte, cause error) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler, exhausted ExhaustedHandler) error
	Close() error
}

// MessageReader wraps the kafka.Reader methods the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads ledger commands with at-least-once delivery.
// A message is retried in place until the handler accepts it or it is dead-lettered;
// its offset is committed only then, so a later commit never skips it.
type KafkaConsumer struct {
	reader       MessageReader
	topic        string
	groupID      string
	retryDelay   time.Duration
	maxRetries   uint64
	retryBackoff time.Duration
	logger       *slog.Logger
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset != 0 {
		startOffset = cfg.StartOffset
	}

	maxRetries := uint64(0)
	if cfg.MaxRetries > 0 {
		maxRetries = uint64(cfg.MaxRetries)
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = 200 * time.Millisecond
	}

	return &KafkaConsumer{
		logger:       logger,
		topic:        cfg.CommandTopic,
		groupID:      cfg.ConsumerGroup,
		retryDelay:   time.Second,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     []string{cfg.Brokers},
			Topic:       cfg.CommandTopic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    cfg.MinBytes,
			MaxBytes:    cfg.MaxBytes,
			MaxWait:     cfg.MaxWait,
			StartOffset: startOffset,
		}),
	}
}

// Subscribe starts the fetch loop in the background; it stops when ctx is done
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler, exhausted ExhaustedHandler) error {
	c.logger.Info("Subscribed to Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go c.run(ctx, handler, exhausted)
	return nil
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler, exhausted ExhaustedHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka", "topic", c.topic, "error", err)
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.settle(ctx, msg, handler, exhausted) {
			c.logger.Info("Context canceled, leaving message uncommitted",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// settle blocks until msg is handled or dead-lettered. It returns false only when ctx is done.
func (c *KafkaConsumer) settle(ctx context.Context, msg kafka.Message, handler MessageHandler, exhausted ExhaustedHandler) bool {
	for {
		err := c.attempt(ctx, msg, handler)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		c.logger.Error("Message failed after all retries",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempts", c.maxRetries+1,
			"error", err,
		)
		if exhausted != nil {
			xerr := exhausted(ctx, msg.Key, msg.Value, err)
			if xerr == nil {
				return true
			}
			c.logger.Error("Failed to dead-letter message, retrying it",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", xerr,
			)
		}
		if !c.sleep(ctx) {
			return false
		}
	}
}

func (c *KafkaConsumer) attempt(ctx context.Context, msg kafka.Message, handler MessageHandler) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBackoff
	b.MaxInterval = c.retryDelay
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	return backoff.RetryNotify(func() error {
		return handler(ctx, msg.Key, msg.Value)
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Failed to process message, retrying",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"retry_in", wait,
			"error", err,
		)
	})
}

func (c *KafkaConsumer) sleep(ctx context.Context) bool {
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
