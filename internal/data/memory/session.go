package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/outbox"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/google/uuid"
)

// session stages the writes of one unit of work
type session struct {
	store *Store
	held  []string

	wallets         map[uuid.UUID]wallet.Wallet
	createdWallets  map[uuid.UUID]bool
	walletBase      map[uuid.UUID]int
	entries         map[string]ledger.Entry
	newEntries      []string
	entryBase       map[string]shared.EntryStatus
	limits          map[uuid.UUID]limit.Limit
	outbox          []*outbox.Message
	outboxStatus    map[int64]shared.OutboxStatus
	outboxIncrement map[int64]int
}

func newSession(s *Store) *session {
	return &session{
		store:           s,
		wallets:         make(map[uuid.UUID]wallet.Wallet),
		createdWallets:  make(map[uuid.UUID]bool),
		walletBase:      make(map[uuid.UUID]int),
		entries:         make(map[string]ledger.Entry),
		entryBase:       make(map[string]shared.EntryStatus),
		limits:          make(map[uuid.UUID]limit.Limit),
		outboxStatus:    make(map[int64]shared.OutboxStatus),
		outboxIncrement: make(map[int64]int),
	}
}

func (s *session) stores() unitofwork.Stores {
	return unitofwork.Stores{
		Wallets: walletRepo{s},
		Entries: entryRepo{s},
		Limits:  limitRepo{s},
		Outbox:  outboxRepo{s},
	}
}

func (s *session) lock(ctx context.Context, key string) error {
	for _, k := range s.held {
		if k == key {
			return nil
		}
	}
	if err := s.store.locks.acquire(ctx, key, s.store.lockTimeout); err != nil {
		s.store.logger.Warn("Lock wait exceeded", "key", key, "error", err)
		return err
	}
	s.held = append(s.held, key)
	return nil
}

func (s *session) releaseLocks() {
	for i := len(s.held) - 1; i >= 0; i-- {
		s.store.locks.release(s.held[i])
	}
	s.held = nil
}

func (s *session) wallet(id uuid.UUID) (wallet.Wallet, bool) {
	if w, ok := s.wallets[id]; ok {
		return w, true
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	w, ok := s.store.wallets[id]
	return w, ok
}

func (s *session) entry(reference string) (ledger.Entry, bool) {
	if e, ok := s.entries[reference]; ok {
		return e, true
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	e, ok := s.store.entries[reference]
	return e, ok
}

func (s *session) limit(walletID uuid.UUID) (limit.Limit, bool) {
	if l, ok := s.limits[walletID]; ok {
		return l, true
	}
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	l, ok := s.store.limits[walletID]
	return l, ok
}

// allEntries merges committed and staged entries in creation order
func (s *session) allEntries() []ledger.Entry {
	s.store.mu.RLock()
	all := make([]ledger.Entry, 0, len(s.store.entryOrder)+len(s.newEntries))
	for _, ref := range s.store.entryOrder {
		e := s.store.entries[ref]
		if staged, ok := s.entries[ref]; ok {
			e = staged
		}
		all = append(all, e)
	}
	s.store.mu.RUnlock()

	for _, ref := range s.newEntries {
		all = append(all, s.entries[ref])
	}
	return all
}

// commit validates staged writes against what committed meanwhile, then applies them atomically
func (s *session) commit() error {
	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()

	for id, base := range s.walletBase {
		if current, ok := st.wallets[id]; !ok || current.Version != base {
			return wallet.ErrConcurrentModification{WalletID: id}
		}
	}
	for id := range s.createdWallets {
		if _, taken := st.walletRefs[s.wallets[id].Reference]; taken {
			return wallet.ErrDuplicateReference{Reference: s.wallets[id].Reference}
		}
	}
	for _, ref := range s.newEntries {
		e := s.entries[ref]
		if _, taken := st.entries[ref]; taken {
			return ledger.ErrDuplicateEntry{Reference: ref}
		}
		if _, taken := st.idempotency[e.IdempotencyKey]; e.IdempotencyKey != "" && taken {
			return ledger.ErrDuplicateEntry{Reference: ref}
		}
	}
	for ref, base := range s.entryBase {
		if st.entries[ref].Status != base {
			return fmt.Errorf("%w: ledger entry %s is no longer %s", shared.ErrConflict, ref, base)
		}
	}

	for id, w := range s.wallets {
		st.wallets[id] = w
		st.walletRefs[w.Reference] = id
	}
	for ref, e := range s.entries {
		st.entries[ref] = e
	}
	for _, ref := range s.newEntries {
		st.entryOrder = append(st.entryOrder, ref)
		if key := s.entries[ref].IdempotencyKey; key != "" {
			st.idempotency[key] = ref
		}
	}
	for id, l := range s.limits {
		st.limits[id] = l
	}
	for i := range st.outbox {
		msg := &st.outbox[i]
		if status, ok := s.outboxStatus[msg.ID]; ok {
			msg.Status = status
		}
		msg.Attempts += s.outboxIncrement[msg.ID]
	}
	for _, msg := range s.outbox {
		st.nextOutboxID++
		msg.ID = st.nextOutboxID
		st.outbox = append(st.outbox, *msg)
	}
	return nil
}

type walletRepo struct{ s *session }

func (r walletRepo) Create(_ context.Context, w *wallet.Wallet) error {
	if _, err := r.GetByReference(context.Background(), w.Reference); err == nil {
		return wallet.ErrDuplicateReference{Reference: w.Reference}
	}
	r.s.wallets[w.ID] = *w
	r.s.createdWallets[w.ID] = true
	return nil
}

func (r walletRepo) GetByID(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	w, ok := r.s.wallet(id)
	if !ok {
		return nil, wallet.ErrWalletNotFound{ID: id}
	}
	return &w, nil
}

func (r walletRepo) GetByReference(ctx context.Context, reference string) (*wallet.Wallet, error) {
	for id, w := range r.s.wallets {
		if w.Reference == reference {
			return r.GetByID(ctx, id)
		}
	}
	r.s.store.mu.RLock()
	id, ok := r.s.store.walletRefs[reference]
	r.s.store.mu.RUnlock()
	if !ok {
		return nil, wallet.ErrWalletNotFound{Reference: reference}
	}
	return r.GetByID(ctx, id)
}

func (r walletRepo) ListByOwner(_ context.Context, ownerRef string) ([]*wallet.Wallet, error) {
	seen := make(map[uuid.UUID]bool)
	var owned []*wallet.Wallet
	collect := func(w wallet.Wallet) {
		if w.OwnerRef == ownerRef && !seen[w.ID] {
			seen[w.ID] = true
			owned = append(owned, &w)
		}
	}
	for _, w := range r.s.wallets {
		collect(w)
	}
	r.s.store.mu.RLock()
	for _, w := range r.s.store.wallets {
		collect(w)
	}
	r.s.store.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
	return owned, nil
}

func (r walletRepo) Update(_ context.Context, w *wallet.Wallet) error {
	current, ok := r.s.wallet(w.ID)
	if !ok {
		return wallet.ErrWalletNotFound{ID: w.ID}
	}
	if current.Version != w.Version-1 {
		return wallet.ErrConcurrentModification{WalletID: w.ID}
	}
	if _, staged := r.s.walletBase[w.ID]; !staged && !r.s.createdWallets[w.ID] {
		r.s.walletBase[w.ID] = current.Version
	}
	r.s.wallets[w.ID] = *w
	return nil
}

func (r walletRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	if err := r.s.lock(ctx, "wallet:"+id.String()); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

type entryRepo struct{ s *session }

func (r entryRepo) Append(_ context.Context, e *ledger.Entry) error {
	if _, exists := r.s.entry(e.Reference); exists {
		return ledger.ErrDuplicateEntry{Reference: e.Reference}
	}
	if e.IdempotencyKey != "" {
		if existing, _ := r.FindByIdempotencyKey(context.Background(), e.IdempotencyKey); existing != nil {
			return ledger.ErrDuplicateEntry{Reference: e.Reference}
		}
	}
	r.s.entries[e.Reference] = *e
	r.s.newEntries = append(r.s.newEntries, e.Reference)
	return nil
}

func (r entryRepo) GetByReference(_ context.Context, reference string) (*ledger.Entry, error) {
	e, ok := r.s.entry(reference)
	if !ok {
		return nil, ledger.ErrEntryNotFound{Reference: reference}
	}
	return &e, nil
}

func (r entryRepo) LockByReference(ctx context.Context, reference string) (*ledger.Entry, error) {
	if err := r.s.lock(ctx, "entry:"+reference); err != nil {
		return nil, err
	}
	return r.GetByReference(ctx, reference)
}

func (r entryRepo) FindByIdempotencyKey(_ context.Context, key string) (*ledger.Entry, error) {
	if key == "" {
		return nil, nil
	}
	for _, ref := range r.s.newEntries {
		if e := r.s.entries[ref]; e.IdempotencyKey == key {
			return &e, nil
		}
	}
	r.s.store.mu.RLock()
	ref, ok := r.s.store.idempotency[key]
	r.s.store.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	e, _ := r.s.entry(ref)
	return &e, nil
}

func (r entryRepo) FindByCorrelation(_ context.Context, correlationRef string) ([]*ledger.Entry, error) {
	var found []*ledger.Entry
	for _, e := range r.s.allEntries() {
		if e.CorrelationRef == correlationRef {
			e := e
			found = append(found, &e)
		}
	}
	return found, nil
}

func (r entryRepo) FindByWallet(_ context.Context, walletID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	all := r.s.allEntries()
	var page []*ledger.Entry
	skipped := 0
	for i := len(all) - 1; i >= 0 && len(page) < limit; i-- {
		if all[i].WalletID != walletID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		e := all[i]
		page = append(page, &e)
	}
	return page, nil
}

func (r entryRepo) CountByWallet(_ context.Context, walletID uuid.UUID) (int64, error) {
	var count int64
	for _, e := range r.s.allEntries() {
		if e.WalletID == walletID {
			count++
		}
	}
	return count, nil
}

func (r entryRepo) AppliedTotals(_ context.Context, walletID uuid.UUID) (ledger.Totals, error) {
	var totals ledger.Totals
	for _, e := range r.s.allEntries() {
		if e.WalletID != walletID || !e.IsApplied() {
			continue
		}
		if e.Type.IsInflow() {
			totals.Credits = totals.Credits.Add(e.Amount)
		} else {
			totals.Debits = totals.Debits.Add(e.Amount)
		}
	}
	return totals, nil
}

func (r entryRepo) UpdateState(_ context.Context, e *ledger.Entry, from shared.EntryStatus) error {
	current, ok := r.s.entry(e.Reference)
	if !ok {
		return ledger.ErrEntryNotFound{Reference: e.Reference}
	}
	if current.Status != from {
		return fmt.Errorf("%w: ledger entry %s is no longer %s", shared.ErrConflict, e.Reference, from)
	}

	isNew := false
	for _, ref := range r.s.newEntries {
		if ref == e.Reference {
			isNew = true
			break
		}
	}
	if _, staged := r.s.entryBase[e.Reference]; !staged && !isNew {
		r.s.entryBase[e.Reference] = from
	}

	// Only the mutable columns change
	current.Status = e.Status
	current.BalanceBefore = e.BalanceBefore
	current.BalanceAfter = e.BalanceAfter
	current.CompletedAt = e.CompletedAt
	r.s.entries[e.Reference] = current
	return nil
}

type limitRepo struct{ s *session }

func (r limitRepo) Get(_ context.Context, walletID uuid.UUID) (*limit.Limit, error) {
	l, ok := r.s.limit(walletID)
	if !ok {
		return nil, limit.ErrLimitNotFound{WalletID: walletID}
	}
	return &l, nil
}

func (r limitRepo) GetForUpdate(ctx context.Context, walletID uuid.UUID) (*limit.Limit, error) {
	if err := r.s.lock(ctx, "limit:"+walletID.String()); err != nil {
		return nil, err
	}
	return r.Get(ctx, walletID)
}

func (r limitRepo) Create(_ context.Context, l *limit.Limit) error {
	if _, exists := r.s.limit(l.WalletID); !exists {
		r.s.limits[l.WalletID] = *l
	}
	return nil
}

func (r limitRepo) Save(_ context.Context, l *limit.Limit) error {
	if _, exists := r.s.limit(l.WalletID); !exists {
		return limit.ErrLimitNotFound{WalletID: l.WalletID}
	}
	r.s.limits[l.WalletID] = *l
	return nil
}

type outboxRepo struct{ s *session }

func (r outboxRepo) Create(_ context.Context, message *outbox.Message) error {
	r.s.outbox = append(r.s.outbox, message)
	return nil
}

func (r outboxRepo) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	r.s.store.mu.RLock()
	defer r.s.store.mu.RUnlock()

	var pending []*outbox.Message
	for _, msg := range r.s.store.outbox {
		if len(pending) == limit {
			break
		}
		if msg.Status == shared.OutboxStatusPending {
			msg := msg
			pending = append(pending, &msg)
		}
	}
	return pending, nil
}

func (r outboxRepo) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	if !r.exists(id) {
		return outbox.ErrMessageNotFound{ID: id}
	}
	r.s.outboxStatus[id] = status
	return nil
}

func (r outboxRepo) IncrementAttempts(_ context.Context, id int64) error {
	if !r.exists(id) {
		return outbox.ErrMessageNotFound{ID: id}
	}
	r.s.outboxIncrement[id]++
	return nil
}

func (r outboxRepo) exists(id int64) bool {
	r.s.store.mu.RLock()
	defer r.s.store.mu.RUnlock()
	for _, msg := range r.s.store.outbox {
		if msg.ID == id {
			return true
		}
	}
	return false
}
