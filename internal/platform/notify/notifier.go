// Package notify delivers wallet notifications after a ledger change committed.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of a redis client the notifier uses
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Notification is the JSON body published for subscribers of a wallet
type Notification struct {
	WalletRef string    `json:"wallet_ref"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	SentAt    time.Time `json:"sent_at"`
}

// RedisNotifier publishes notifications to <prefix>:<wallet reference>
type RedisNotifier struct {
	client Publisher
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisNotifier(client Publisher, prefix string, logger *slog.Logger) *RedisNotifier {
	if prefix == "" {
		prefix = "wallet-notifications"
	}
	return &RedisNotifier{
		client: client,
		prefix: prefix,
		logger: logger,
		now:    time.Now,
	}
}

// Channel names the pub/sub channel of a wallet
func (n *RedisNotifier) Channel(walletRef string) string {
	return n.prefix + ":" + walletRef
}

func (n *RedisNotifier) Notify(ctx context.Context, walletRef, title, message string) error {
	payload, err := json.Marshal(Notification{
		WalletRef: walletRef,
		Title:     title,
		Message:   message,
		SentAt:    n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	channel := n.Channel(walletRef)
	receivers, err := n.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", channel, err)
	}

	n.logger.Debug("Published notification", "channel", channel, "title", title, "receivers", receivers)
	return nil
}

// NoopNotifier drops notifications; used when Redis is disabled
type NoopNotifier struct{}

func NewNoopNotifier() NoopNotifier { return NoopNotifier{} }

func (NoopNotifier) Notify(context.Context, string, string, string) error { return nil }
