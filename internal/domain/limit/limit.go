package limit

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidCaps = errors.New("limit caps must be positive")

// Caps are the configured ceilings of a wallet's spend limits
type Caps struct {
	Daily          decimal.Decimal `json:"daily_limit"`
	Monthly        decimal.Decimal `json:"monthly_limit"`
	PerTransaction decimal.Decimal `json:"per_transaction_limit"`
}

// DefaultCaps returns the caps given to wallets that have none
func DefaultCaps() Caps {
	return Caps{
		Daily:          decimal.NewFromInt(50000),
		Monthly:        decimal.NewFromInt(500000),
		PerTransaction: decimal.NewFromInt(25000),
	}
}

// Validate requires every cap to be positive
func (c Caps) Validate() error {
	if !c.Daily.IsPositive() || !c.Monthly.IsPositive() || !c.PerTransaction.IsPositive() {
		return ErrInvalidCaps
	}
	return nil
}

// Limit tracks how much a wallet has moved in the current day and month.
// Reset watermarks are UTC calendar dates.
type Limit struct {
	WalletID            uuid.UUID       `json:"wallet_id"`
	DailyLimit          decimal.Decimal `json:"daily_limit"`
	MonthlyLimit        decimal.Decimal `json:"monthly_limit"`
	PerTransactionLimit decimal.Decimal `json:"per_transaction_limit"`
	DailySpent          decimal.Decimal `json:"daily_spent"`
	MonthlySpent        decimal.Decimal `json:"monthly_spent"`
	LastDailyReset      time.Time       `json:"last_daily_reset"`
	LastMonthlyReset    time.Time       `json:"last_monthly_reset"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// New creates zeroed counters for a wallet
func New(walletID uuid.UUID, caps Caps, occursOn time.Time) *Limit {
	day := DateOf(occursOn)
	return &Limit{
		WalletID:            walletID,
		DailyLimit:          caps.Daily,
		MonthlyLimit:        caps.Monthly,
		PerTransactionLimit: caps.PerTransaction,
		DailySpent:          decimal.Zero,
		MonthlySpent:        decimal.Zero,
		LastDailyReset:      day,
		LastMonthlyReset:    day,
		UpdatedAt:           occursOn,
	}
}

// DateOf truncates t to its UTC calendar date
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResetIfStale zeroes the daily counter when occursOn falls on another date than the last
// daily reset, and the monthly counter when it falls in another month. It reports whether
// anything changed; calling it twice with the same occursOn is a no-op the second time.
func (l *Limit) ResetIfStale(occursOn time.Time) bool {
	day := DateOf(occursOn)
	changed := false

	if !DateOf(l.LastDailyReset).Equal(day) {
		l.DailySpent = decimal.Zero
		l.LastDailyReset = day
		changed = true
	}

	lastMonth := DateOf(l.LastMonthlyReset)
	if lastMonth.Year() != day.Year() || lastMonth.Month() != day.Month() {
		l.MonthlySpent = decimal.Zero
		l.LastMonthlyReset = day
		changed = true
	}

	return changed
}

// Check validates a prospective amount against the per-transaction, daily and monthly caps, in that order
func (l *Limit) Check(amount decimal.Decimal) error {
	if amount.GreaterThan(l.PerTransactionLimit) {
		return ErrLimitExceeded{Kind: KindPerTransaction, Limit: l.PerTransactionLimit, Spent: decimal.Zero, Requested: amount}
	}
	if l.DailySpent.Add(amount).GreaterThan(l.DailyLimit) {
		return ErrLimitExceeded{Kind: KindDaily, Limit: l.DailyLimit, Spent: l.DailySpent, Requested: amount}
	}
	if l.MonthlySpent.Add(amount).GreaterThan(l.MonthlyLimit) {
		return ErrLimitExceeded{Kind: KindMonthly, Limit: l.MonthlyLimit, Spent: l.MonthlySpent, Requested: amount}
	}
	return nil
}

// Reserve records an amount against both counters
func (l *Limit) Reserve(amount decimal.Decimal, now time.Time) {
	l.DailySpent = l.DailySpent.Add(amount)
	l.MonthlySpent = l.MonthlySpent.Add(amount)
	l.UpdatedAt = now
}

// ApplyCaps replaces the ceilings; spent counters are kept
func (l *Limit) ApplyCaps(caps Caps, now time.Time) error {
	if err := caps.Validate(); err != nil {
		return err
	}
	l.DailyLimit = caps.Daily
	l.MonthlyLimit = caps.Monthly
	l.PerTransactionLimit = caps.PerTransaction
	l.UpdatedAt = now
	return nil
}

// DailyRemaining is what can still be moved today, never negative
func (l *Limit) DailyRemaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, l.DailyLimit.Sub(l.DailySpent))
}

// MonthlyRemaining is what can still be moved this month, never negative
func (l *Limit) MonthlyRemaining() decimal.Decimal {
	return decimal.Max(decimal.Zero, l.MonthlyLimit.Sub(l.MonthlySpent))
}
