package handler

import (
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader may carry the idempotency key instead of the request body
const IdempotencyKeyHeader = "Idempotency-Key"

// Amounts travel as decimal strings so no precision is lost

type OpenWalletRequest struct {
	OwnerRef string `json:"owner_ref" binding:"required,max=64"`
	Currency string `json:"currency" binding:"omitempty,len=3"`
	Type     string `json:"type" binding:"omitempty,oneof=PERSONAL BUSINESS SAVINGS"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE INACTIVE FROZEN BLOCKED"`
}

type UpdateLimitsRequest struct {
	DailyLimit          string `json:"daily_limit" binding:"required"`
	MonthlyLimit        string `json:"monthly_limit" binding:"required"`
	PerTransactionLimit string `json:"per_transaction_limit" binding:"required"`
}

// AmountRequest is the body of credit, debit, payment and authorize
type AmountRequest struct {
	WalletRef      string `json:"wallet_ref" binding:"required,max=32"`
	Amount         string `json:"amount" binding:"required"`
	Type           string `json:"type,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty" binding:"max=32"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"max=128"`
}

type TransferRequest struct {
	SourceRef      string `json:"source_wallet_ref" binding:"required,max=32"`
	DestinationRef string `json:"destination_wallet_ref" binding:"required,max=32"`
	Amount         string `json:"amount" binding:"required"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"max=128"`
}

type RefundRequest struct {
	Reason         string `json:"reason" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty" binding:"max=128"`
}

// CommandRequest queues an operation for the processor instead of running it inline
type CommandRequest struct {
	CommandID      string `json:"command_id,omitempty" binding:"max=128"`
	Operation      string `json:"operation" binding:"required"`
	WalletRef      string `json:"wallet_ref,omitempty" binding:"max=32"`
	DestinationRef string `json:"destination_ref,omitempty" binding:"max=32"`
	Amount         string `json:"amount,omitempty"`
	PaymentMethod  string `json:"payment_method,omitempty" binding:"max=32"`
	Description    string `json:"description,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty" binding:"max=32"`
	Reason         string `json:"reason,omitempty"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

type WalletResponse struct {
	Reference string `json:"reference"`
	OwnerRef  string `json:"owner_ref"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type EntryResponse struct {
	Reference       string `json:"reference"`
	CorrelationRef  string `json:"correlation_ref"`
	WalletRef       string `json:"wallet_ref"`
	CounterpartyRef string `json:"counterparty_ref,omitempty"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	BalanceBefore   string `json:"balance_before"`
	BalanceAfter    string `json:"balance_after"`
	Status          string `json:"status"`
	PaymentMethod   string `json:"payment_method,omitempty"`
	Description     string `json:"description,omitempty"`
	CreatedAt       string `json:"created_at"`
	CompletedAt     string `json:"completed_at,omitempty"`
}

type LimitsResponse struct {
	WalletRef           string `json:"wallet_ref"`
	DailyLimit          string `json:"daily_limit"`
	MonthlyLimit        string `json:"monthly_limit"`
	PerTransactionLimit string `json:"per_transaction_limit"`
	DailySpent          string `json:"daily_spent"`
	MonthlySpent        string `json:"monthly_spent"`
	DailyRemaining      string `json:"daily_remaining"`
	MonthlyRemaining    string `json:"monthly_remaining"`
	LastDailyReset      string `json:"last_daily_reset"`
	LastMonthlyReset    string `json:"last_monthly_reset"`
}

type TotalsResponse struct {
	Credits string `json:"total_credits"`
	Debits  string `json:"total_debits"`
	Net     string `json:"net"`
}

type HistoryResponse struct {
	WalletRef string          `json:"wallet_ref"`
	Entries   []EntryResponse `json:"entries"`
	Totals    TotalsResponse  `json:"totals"`
}

type ReconciliationResponse struct {
	WalletRef     string         `json:"wallet_ref"`
	Balance       string         `json:"balance"`
	LedgerBalance string         `json:"ledger_balance"`
	Totals        TotalsResponse `json:"totals"`
	Consistent    bool           `json:"consistent"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mapWallet(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		Reference: w.Reference,
		OwnerRef:  w.OwnerRef,
		Balance:   money(w.Balance),
		Currency:  w.Currency,
		Status:    string(w.Status),
		Type:      string(w.Type),
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
}

func mapEntry(e *ledger.Entry) EntryResponse {
	response := EntryResponse{
		Reference:       e.Reference,
		CorrelationRef:  e.CorrelationRef,
		WalletRef:       e.WalletRef,
		CounterpartyRef: e.CounterpartyRef,
		Type:            string(e.Type),
		Amount:          money(e.Amount),
		Currency:        e.Currency,
		BalanceBefore:   money(e.BalanceBefore),
		BalanceAfter:    money(e.BalanceAfter),
		Status:          string(e.Status),
		PaymentMethod:   e.PaymentMethod,
		Description:     e.Description,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.CompletedAt != nil {
		response.CompletedAt = e.CompletedAt.Format(time.RFC3339)
	}
	return response
}

func mapEntries(entries []*ledger.Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, mapEntry(e))
	}
	return out
}

func mapLimits(walletRef string, l *limit.Limit) LimitsResponse {
	return LimitsResponse{
		WalletRef:           walletRef,
		DailyLimit:          money(l.DailyLimit),
		MonthlyLimit:        money(l.MonthlyLimit),
		PerTransactionLimit: money(l.PerTransactionLimit),
		DailySpent:          money(l.DailySpent),
		MonthlySpent:        money(l.MonthlySpent),
		DailyRemaining:      money(l.DailyRemaining()),
		MonthlyRemaining:    money(l.MonthlyRemaining()),
		LastDailyReset:      l.LastDailyReset.Format(time.DateOnly),
		LastMonthlyReset:    l.LastMonthlyReset.Format(time.DateOnly),
	}
}

func mapTotals(t ledger.Totals) TotalsResponse {
	return TotalsResponse{
		Credits: money(t.Credits),
		Debits:  money(t.Debits),
		Net:     money(t.Net()),
	}
}

func mapReconciliation(r *service.Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		WalletRef:     r.WalletRef,
		Balance:       money(r.Balance),
		LedgerBalance: money(r.LedgerBalance),
		Totals:        mapTotals(r.Totals),
		Consistent:    r.Consistent,
	}
}
