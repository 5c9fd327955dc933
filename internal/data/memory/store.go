// Package memory keeps wallets, ledger entries, limits and outbox messages in process.
// Its unit of work stages writes and applies them under one mutex on commit, and
// serializes lockers of the same wallet or entry with bounded waits.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/google/uuid"
)

// Store is an in-process implementation of every ledger repository
type Store struct {
	logger      *slog.Logger
	lockTimeout time.Duration
	locks       *lockTable

	mu           sync.RWMutex
	wallets      map[uuid.UUID]wallet.Wallet
	walletRefs   map[string]uuid.UUID
	entries      map[string]ledger.Entry
	entryOrder   []string
	idempotency  map[string]string
	limits       map[uuid.UUID]limit.Limit
	outbox       []outbox.Message
	nextOutboxID int64
}

var _ unitofwork.UnitOfWork = (*Store)(nil)

// NewStore creates an empty store; lockTimeout bounds every wallet, entry or limit lock wait
func NewStore(logger *slog.Logger, lockTimeout time.Duration) *Store {
	return &Store{
		logger:      logger,
		lockTimeout: lockTimeout,
		locks:       &lockTable{locks: make(map[string]chan struct{})},
		wallets:     make(map[uuid.UUID]wallet.Wallet),
		walletRefs:  make(map[string]uuid.UUID),
		entries:     make(map[string]ledger.Entry),
		idempotency: make(map[string]string),
		limits:      make(map[uuid.UUID]limit.Limit),
	}
}

// Execute runs fn against a session. Nothing fn wrote is visible unless it returns nil,
// and every lock it took is released before Execute returns.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, stores unitofwork.Stores) error) error {
	sess := newSession(s)
	defer sess.releaseLocks()

	if err := fn(ctx, sess.stores()); err != nil {
		return err
	}
	return sess.commit()
}

// Snapshot returns committed wallets and entries, for tests and diagnostics
func (s *Store) Snapshot() ([]wallet.Wallet, []ledger.Entry) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]wallet.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		wallets = append(wallets, w)
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].Reference < wallets[j].Reference })

	entries := make([]ledger.Entry, 0, len(s.entryOrder))
	for _, ref := range s.entryOrder {
		entries = append(entries, s.entries[ref])
	}
	return wallets, entries
}

// OutboxMessages returns committed outbox messages in insertion order
func (s *Store) OutboxMessages() []outbox.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Message(nil), s.outbox...)
}

// lockTable hands out one exclusive lock per key. A lock is a buffered channel of capacity one.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func (t *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	t.mu.Lock()
	ch, ok := t.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[key] = ch
	}
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: lock %s not acquired within %s", shared.ErrConflict, key, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *lockTable) release(key string) {
	t.mu.Lock()
	ch := t.locks[key]
	t.mu.Unlock()
	<-ch
}
