package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/shopspring/decimal"
)

const outcomeSuccess = "success"

// LedgerEngine mutates balances, ledger entries and limit counters as one unit per operation
type LedgerEngine struct {
	uow      unitofwork.UnitOfWork
	limits   LimitPolicy
	outbox   OutboxManager
	notifier Notifier
	metrics  MetricsRecorder
	cfg      EngineConfig
	logger   *slog.Logger
	now      func() time.Time
}

// Option customises a LedgerEngine
type Option func(*LedgerEngine)

// WithClock replaces the wall clock used for timestamps and limit resets
func WithClock(now func() time.Time) Option {
	return func(e *LedgerEngine) {
		e.now = now
	}
}

func NewLedgerEngine(
	uow unitofwork.UnitOfWork,
	limits LimitPolicy,
	outbox OutboxManager,
	notifier Notifier,
	metrics MetricsRecorder,
	cfg EngineConfig,
	logger *slog.Logger,
	opts ...Option,
) *LedgerEngine {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = shared.DefaultCurrency
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 2 * time.Second
	}

	e := &LedgerEngine{
		uow:      uow,
		limits:   limits,
		outbox:   outbox,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type notification struct {
	walletRef string
	title     string
	message   string
}

// Credit adds money to an active wallet. Credits count against the wallet's limits.
func (e *LedgerEngine) Credit(ctx context.Context, req CreditRequest) (*ledger.Entry, error) {
	entryType := req.Type
	if entryType == "" {
		entryType = shared.EntryTypeTopUp
	}
	if entryType != shared.EntryTypeTopUp && entryType != shared.EntryTypeCredit {
		return nil, fmt.Errorf("%w: credit type %s", ErrInvalidRequest, entryType)
	}
	if err := shared.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	draft := ledger.Draft{
		Type:           entryType,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	}
	return e.single(ctx, "credit", req.WalletRef, draft, func(w *wallet.Wallet) notification {
		return notification{w.Reference, "Money Added",
			fmt.Sprintf("%s %s has been added to your wallet", w.Currency, money(req.Amount))}
	})
}

// Debit withdraws money from an active wallet with enough balance
func (e *LedgerEngine) Debit(ctx context.Context, req DebitRequest) (*ledger.Entry, error) {
	entryType := req.Type
	if entryType == "" {
		entryType = shared.EntryTypeWithdrawal
	}
	if entryType != shared.EntryTypeWithdrawal && entryType != shared.EntryTypeDebit {
		return nil, fmt.Errorf("%w: debit type %s", ErrInvalidRequest, entryType)
	}
	if err := shared.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	draft := ledger.Draft{
		Type:           entryType,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	}
	return e.single(ctx, "debit", req.WalletRef, draft, func(w *wallet.Wallet) notification {
		return notification{w.Reference, "Money Withdrawn",
			fmt.Sprintf("%s %s has been withdrawn from your wallet", w.Currency, money(req.Amount))}
	})
}

// Payment is a debit recorded as PAYMENT
func (e *LedgerEngine) Payment(ctx context.Context, req PaymentRequest) (*ledger.Entry, error) {
	if err := shared.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	draft := ledger.Draft{
		Type:           shared.EntryTypePayment,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	}
	return e.single(ctx, "payment", req.WalletRef, draft, func(w *wallet.Wallet) notification {
		return notification{w.Reference, "Payment Completed",
			fmt.Sprintf("Payment of %s %s completed successfully", w.Currency, money(req.Amount))}
	})
}

// single applies one completed entry to one wallet
func (e *LedgerEngine) single(ctx context.Context, operation, walletRef string, draft ledger.Draft, notice func(*wallet.Wallet) notification) (*ledger.Entry, error) {
	logger := e.logger.With("operation", operation, "wallet_ref", walletRef)
	if err := checkWidths(draft.IdempotencyKey, draft.PaymentMethod); err != nil {
		return nil, err
	}
	draft.RequestFingerprint = fingerprint(operation, string(draft.Type), walletRef, draft.Amount.StringFixed(2))

	var (
		result   *ledger.Entry
		replayed bool
		notes    []notification
	)
	err := e.execute(ctx, operation, func(ctx context.Context, s unitofwork.Stores) error {
		result, replayed, notes = nil, false, nil

		existing, err := replay(ctx, s, draft.IdempotencyKey, draft.RequestFingerprint)
		if err != nil || existing != nil {
			result, replayed = existing, existing != nil
			return err
		}

		w, err := lockWalletByReference(ctx, s, walletRef)
		if err != nil {
			return err
		}

		entry, err := e.post(ctx, s, w, draft, true, e.now())
		if err != nil {
			return err
		}
		result = entry
		notes = append(notes, notice(w))
		return nil
	})
	if err != nil {
		logger.Warn("Ledger operation rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	if replayed {
		logger.Info("Idempotent replay, returning stored entry", "reference", result.Reference)
		return result, nil
	}

	logger.Info("Ledger operation completed",
		"reference", result.Reference,
		"amount", result.Amount.String(),
		"balance_after", result.BalanceAfter.String(),
	)
	e.notify(ctx, notes)
	return result, nil
}

// Transfer debits the source and credits the destination in one unit.
// It returns the TRANSFER_OUT leg; both legs share a correlation reference.
func (e *LedgerEngine) Transfer(ctx context.Context, req TransferRequest) (*ledger.Entry, error) {
	if err := shared.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	if req.SourceRef == req.DestinationRef {
		return nil, ErrSameWallet
	}

	logger := e.logger.With("operation", "transfer", "source_ref", req.SourceRef, "destination_ref", req.DestinationRef)
	if err := checkWidths(req.IdempotencyKey, ""); err != nil {
		return nil, err
	}
	requestFingerprint := fingerprint("transfer", req.SourceRef, req.DestinationRef, req.Amount.StringFixed(2))

	var (
		result   *ledger.Entry
		replayed bool
		notes    []notification
	)
	err := e.execute(ctx, "transfer", func(ctx context.Context, s unitofwork.Stores) error {
		result, replayed, notes = nil, false, nil

		existing, err := replay(ctx, s, req.IdempotencyKey, requestFingerprint)
		if err != nil || existing != nil {
			result, replayed = existing, existing != nil
			return err
		}

		src, err := s.Wallets.GetByReference(ctx, req.SourceRef)
		if err != nil {
			return err
		}
		dst, err := s.Wallets.GetByReference(ctx, req.DestinationRef)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound{}) {
				return ErrDestinationWalletNotFound{Reference: req.DestinationRef}
			}
			return err
		}
		if src.ID == dst.ID {
			return ErrSameWallet
		}

		src, dst, err = lockPair(ctx, s, src, dst)
		if err != nil {
			return err
		}

		if !src.IsActive() {
			return wallet.ErrWalletNotActive{Reference: src.Reference, Status: src.Status}
		}
		if !dst.IsActive() {
			return ErrDestinationWalletNotActive{Reference: dst.Reference, Status: dst.Status}
		}
		if src.Currency != dst.Currency {
			return fmt.Errorf("%w: %s to %s", ErrCurrencyMismatch, src.Currency, dst.Currency)
		}

		now := e.now()
		base := ledger.NewReference()
		outRef, inRef := ledger.TransferReferences(base)
		srcID, dstID := src.ID, dst.ID

		out, err := e.post(ctx, s, src, ledger.Draft{
			Reference:            outRef,
			CorrelationRef:       base,
			CounterpartyWalletID: &dstID,
			CounterpartyRef:      dst.Reference,
			Type:                 shared.EntryTypeTransferOut,
			Amount:               req.Amount,
			Description:          req.Description,
			IdempotencyKey:       req.IdempotencyKey,
			RequestFingerprint:   requestFingerprint,
		}, true, now)
		if err != nil {
			return err
		}

		// the receiving side is not limit-checked
		if _, err := e.post(ctx, s, dst, ledger.Draft{
			Reference:            inRef,
			CorrelationRef:       base,
			CounterpartyWalletID: &srcID,
			CounterpartyRef:      src.Reference,
			Type:                 shared.EntryTypeTransferIn,
			Amount:               req.Amount,
			Description:          req.Description,
		}, false, now); err != nil {
			return err
		}

		result = out
		notes = append(notes,
			notification{src.Reference, "Money Transferred",
				fmt.Sprintf("%s %s transferred to %s", src.Currency, money(req.Amount), dst.Reference)},
			notification{dst.Reference, "Money Received",
				fmt.Sprintf("%s %s received from %s", dst.Currency, money(req.Amount), src.Reference)},
		)
		return nil
	})
	if err != nil {
		logger.Warn("Transfer rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	if replayed {
		logger.Info("Idempotent replay, returning stored entry", "reference", result.Reference)
		return result, nil
	}

	logger.Info("Transfer completed", "reference", result.Reference, "correlation_ref", result.CorrelationRef)
	e.notify(ctx, notes)
	return result, nil
}

// Authorize records a PENDING payment. Nothing is reserved until Settle.
func (e *LedgerEngine) Authorize(ctx context.Context, req PaymentRequest) (*ledger.Entry, error) {
	if err := shared.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	logger := e.logger.With("operation", "authorize", "wallet_ref", req.WalletRef)
	if err := checkWidths(req.IdempotencyKey, req.PaymentMethod); err != nil {
		return nil, err
	}
	requestFingerprint := fingerprint("authorize", req.WalletRef, req.Amount.StringFixed(2))

	var (
		result   *ledger.Entry
		replayed bool
	)
	err := e.execute(ctx, "authorize", func(ctx context.Context, s unitofwork.Stores) error {
		result, replayed = nil, false

		existing, err := replay(ctx, s, req.IdempotencyKey, requestFingerprint)
		if err != nil || existing != nil {
			result, replayed = existing, existing != nil
			return err
		}

		w, err := s.Wallets.GetByReference(ctx, req.WalletRef)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			return wallet.ErrWalletNotActive{Reference: w.Reference, Status: w.Status}
		}

		now := e.now()
		entry, err := ledger.NewPending(ledger.Draft{
			WalletID:           w.ID,
			WalletRef:          w.Reference,
			Type:               shared.EntryTypePayment,
			Amount:             req.Amount,
			Currency:           w.Currency,
			PaymentMethod:      req.PaymentMethod,
			Description:        req.Description,
			IdempotencyKey:     req.IdempotencyKey,
			RequestFingerprint: requestFingerprint,
		}, w.Balance, now)
		if err != nil {
			return err
		}
		if err := s.Entries.Append(ctx, entry); err != nil {
			return err
		}
		if err := e.outbox.Record(ctx, s.Outbox, entry, now); err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		logger.Warn("Authorization rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	logger.Info("Payment authorized", "reference", result.Reference, "replayed", replayed)
	return result, nil
}

// Settle applies a PENDING payment to its wallet
func (e *LedgerEngine) Settle(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	logger := e.logger.With("operation", "settle", "reference", transactionRef)

	var (
		result *ledger.Entry
		notes  []notification
	)
	err := e.execute(ctx, "settle", func(ctx context.Context, s unitofwork.Stores) error {
		result, notes = nil, nil

		entry, err := s.Entries.LockByReference(ctx, transactionRef)
		if err != nil {
			return err
		}
		if entry.Status != shared.EntryStatusPending {
			return ledger.ErrInvalidState{Reference: entry.Reference, Status: entry.Status, Operation: "settle"}
		}

		w, err := s.Wallets.LockForUpdate(ctx, entry.WalletID)
		if err != nil {
			return err
		}
		now := e.now()
		if err := e.admit(ctx, s, w, entry.Type, entry.Amount, true, now); err != nil {
			return err
		}
		if err := entry.Settle(w.Balance, now); err != nil {
			return err
		}
		if err := w.Debit(entry.Amount, now); err != nil {
			return err
		}
		if err := s.Wallets.Update(ctx, w); err != nil {
			return err
		}
		if err := s.Entries.UpdateState(ctx, entry, shared.EntryStatusPending); err != nil {
			return err
		}
		if err := e.outbox.Record(ctx, s.Outbox, entry, now); err != nil {
			return err
		}

		result = entry
		notes = append(notes, notification{w.Reference, "Payment Completed",
			fmt.Sprintf("Payment of %s %s completed successfully", w.Currency, money(entry.Amount))})
		return nil
	})
	if err != nil {
		logger.Warn("Settlement rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	logger.Info("Payment settled", "balance_after", result.BalanceAfter.String())
	e.notify(ctx, notes)
	return result, nil
}

// Cancel moves a PENDING entry to CANCELLED. Balances are untouched.
func (e *LedgerEngine) Cancel(ctx context.Context, transactionRef string) (*ledger.Entry, error) {
	logger := e.logger.With("operation", "cancel", "reference", transactionRef)

	var (
		result *ledger.Entry
		notes  []notification
	)
	err := e.execute(ctx, "cancel", func(ctx context.Context, s unitofwork.Stores) error {
		result, notes = nil, nil

		entry, err := s.Entries.LockByReference(ctx, transactionRef)
		if err != nil {
			return err
		}

		now := e.now()
		if err := entry.Cancel(now); err != nil {
			return err
		}
		if err := s.Entries.UpdateState(ctx, entry, shared.EntryStatusPending); err != nil {
			return err
		}
		if err := e.outbox.Record(ctx, s.Outbox, entry, now); err != nil {
			return err
		}

		result = entry
		notes = append(notes, notification{entry.WalletRef, "Transaction Cancelled",
			fmt.Sprintf("Transaction %s has been cancelled", entry.Reference)})
		return nil
	})
	if err != nil {
		logger.Warn("Cancellation rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	logger.Info("Transaction cancelled")
	e.notify(ctx, notes)
	return result, nil
}

// Refund credits the amount of a COMPLETED entry back to its wallet and marks it REFUNDED.
// Refunds are not limit-checked.
func (e *LedgerEngine) Refund(ctx context.Context, req RefundRequest) (*ledger.Entry, error) {
	logger := e.logger.With("operation", "refund", "reference", req.TransactionRef)
	if err := checkWidths(req.IdempotencyKey, ""); err != nil {
		return nil, err
	}
	requestFingerprint := fingerprint("refund", req.TransactionRef)

	var (
		result   *ledger.Entry
		replayed bool
		notes    []notification
	)
	err := e.execute(ctx, "refund", func(ctx context.Context, s unitofwork.Stores) error {
		result, replayed, notes = nil, false, nil

		existing, err := replay(ctx, s, req.IdempotencyKey, requestFingerprint)
		if err != nil || existing != nil {
			result, replayed = existing, existing != nil
			return err
		}

		original, err := s.Entries.LockByReference(ctx, req.TransactionRef)
		if err != nil {
			return err
		}
		from := original.Status
		if err := original.MarkRefunded(); err != nil {
			return err
		}

		w, err := s.Wallets.LockForUpdate(ctx, original.WalletID)
		if err != nil {
			return err
		}

		now := e.now()
		refund, err := e.post(ctx, s, w, ledger.Draft{
			CorrelationRef:     original.CorrelationRef,
			CounterpartyRef:    original.CounterpartyRef,
			Type:               shared.EntryTypeRefund,
			Amount:             original.Amount,
			Description:        fmt.Sprintf("Refund for %s. Reason: %s", original.Reference, req.Reason),
			IdempotencyKey:     req.IdempotencyKey,
			RequestFingerprint: requestFingerprint,
		}, false, now)
		if err != nil {
			return err
		}
		if err := s.Entries.UpdateState(ctx, original, from); err != nil {
			return err
		}
		if err := e.outbox.Record(ctx, s.Outbox, original, now); err != nil {
			return err
		}

		result = refund
		notes = append(notes, notification{w.Reference, "Refund Processed",
			fmt.Sprintf("%s %s has been refunded to your wallet", w.Currency, money(original.Amount))})
		return nil
	})
	if err != nil {
		logger.Warn("Refund rejected", "kind", KindOf(err), "error", err)
		return nil, err
	}

	if replayed {
		logger.Info("Idempotent replay, returning stored entry", "refund_reference", result.Reference)
		return result, nil
	}

	logger.Info("Refund completed", "refund_reference", result.Reference)
	e.notify(ctx, notes)
	return result, nil
}

// admit runs the pre-mutation checks in order: wallet status, balance, then limits
func (e *LedgerEngine) admit(ctx context.Context, s unitofwork.Stores, w *wallet.Wallet, entryType shared.EntryType, amount decimal.Decimal, checkLimits bool, now time.Time) error {
	if !w.IsActive() {
		return wallet.ErrWalletNotActive{Reference: w.Reference, Status: w.Status}
	}
	if !entryType.IsInflow() && !w.CanDebit(amount) {
		return wallet.ErrInsufficientBalance{Reference: w.Reference, Balance: w.Balance, Requested: amount}
	}
	if checkLimits {
		if _, err := e.limits.CheckAndReserve(ctx, s.Limits, w, amount, now); err != nil {
			return err
		}
	}
	return nil
}

// post admits and applies one completed entry against a locked wallet
func (e *LedgerEngine) post(ctx context.Context, s unitofwork.Stores, w *wallet.Wallet, d ledger.Draft, checkLimits bool, now time.Time) (*ledger.Entry, error) {
	d.WalletID = w.ID
	d.WalletRef = w.Reference
	d.Currency = w.Currency

	if err := e.admit(ctx, s, w, d.Type, d.Amount, checkLimits, now); err != nil {
		return nil, err
	}

	entry, err := ledger.NewCompleted(d, w.Balance, now)
	if err != nil {
		return nil, err
	}

	if d.Type.IsInflow() {
		err = w.Credit(d.Amount, now)
	} else {
		err = w.Debit(d.Amount, now)
	}
	if err != nil {
		return nil, err
	}

	if err := s.Wallets.Update(ctx, w); err != nil {
		return nil, err
	}
	if err := s.Entries.Append(ctx, entry); err != nil {
		return nil, err
	}
	if err := e.outbox.Record(ctx, s.Outbox, entry, now); err != nil {
		return nil, err
	}
	return entry, nil
}

// execute runs fn in a unit of work, retrying with backoff while it fails with a conflict
func (e *LedgerEngine) execute(ctx context.Context, operation string, fn func(ctx context.Context, s unitofwork.Stores) error) error {
	start := time.Now()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.RetryInitialInterval
	b.MaxInterval = e.cfg.RetryMaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, e.cfg.MaxConflictRetries), ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := e.uow.Execute(ctx, fn)
		if err == nil || errors.Is(err, shared.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		e.metrics.IncConflictRetry(operation)
		e.logger.Warn("Conflict, retrying ledger operation",
			"operation", operation,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})

	outcome := outcomeSuccess
	if err != nil {
		outcome = string(KindOf(err))
	}
	e.metrics.ObserveOperation(operation, outcome, time.Since(start))
	return err
}

// notify delivers notifications after commit; failures are only logged
func (e *LedgerEngine) notify(ctx context.Context, notes []notification) {
	for _, n := range notes {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.NotificationTimeout)
		if err := e.notifier.Notify(nctx, n.walletRef, n.title, n.message); err != nil {
			e.logger.Warn("Failed to deliver notification", "wallet_ref", n.walletRef, "title", n.title, "error", err)
		}
		cancel()
	}
}

// replay returns the entry already stored under key. A key spent on a different request is rejected.
func replay(ctx context.Context, s unitofwork.Stores, key, requestFingerprint string) (*ledger.Entry, error) {
	if key == "" {
		return nil, nil
	}
	existing, err := s.Entries.FindByIdempotencyKey(ctx, key)
	if err != nil || existing == nil {
		return existing, err
	}
	if existing.RequestFingerprint != requestFingerprint {
		return nil, fmt.Errorf("%w: idempotency key %s was already used for a different request", ErrInvalidRequest, key)
	}
	return existing, nil
}

// checkWidths rejects values the store columns cannot hold
func checkWidths(idempotencyKey, paymentMethod string) error {
	if len(idempotencyKey) > shared.MaxIdempotencyKeyLength {
		return fmt.Errorf("%w: idempotency key longer than %d characters", ErrInvalidRequest, shared.MaxIdempotencyKeyLength)
	}
	if len(paymentMethod) > shared.MaxPaymentMethodLength {
		return fmt.Errorf("%w: payment method longer than %d characters", ErrInvalidRequest, shared.MaxPaymentMethodLength)
	}
	return nil
}

// fingerprint identifies a request by operation, target and amount
func fingerprint(operation string, parts ...string) string {
	sum := sha256.Sum256([]byte(operation + "|" + strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func lockWalletByReference(ctx context.Context, s unitofwork.Stores, ref string) (*wallet.Wallet, error) {
	w, err := s.Wallets.GetByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	return s.Wallets.LockForUpdate(ctx, w.ID)
}

// lockPair locks both wallets in ascending id order and returns them in argument order
func lockPair(ctx context.Context, s unitofwork.Stores, a, b *wallet.Wallet) (*wallet.Wallet, *wallet.Wallet, error) {
	first, second := a.ID, b.ID
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	lockedFirst, err := s.Wallets.LockForUpdate(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	lockedSecond, err := s.Wallets.LockForUpdate(ctx, second)
	if err != nil {
		return nil, nil, err
	}

	if lockedFirst.ID == a.ID {
		return lockedFirst, lockedSecond, nil
	}
	return lockedSecond, lockedFirst, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(shared.MoneyScale)
}
