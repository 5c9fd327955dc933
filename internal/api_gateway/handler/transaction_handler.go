package handler

import (
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionHandler runs ledger operations synchronously and reads entries back
type TransactionHandler struct {
	ledger service.LedgerService
	logger *slog.Logger
}

func NewTransactionHandler(logger *slog.Logger, ledger service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		ledger: ledger,
		logger: logger,
	}
}

func (h *TransactionHandler) Credit(c *gin.Context) {
	req, amount, ok := bindAmount(c)
	if !ok {
		return
	}
	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Credit(c.Request.Context(), service.CreditRequest{
			WalletRef:      req.WalletRef,
			Amount:         amount,
			PaymentMethod:  req.PaymentMethod,
			Description:    req.Description,
			Type:           shared.EntryType(req.Type),
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		})
	})
}

func (h *TransactionHandler) Debit(c *gin.Context) {
	req, amount, ok := bindAmount(c)
	if !ok {
		return
	}
	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Debit(c.Request.Context(), service.DebitRequest{
			WalletRef:      req.WalletRef,
			Amount:         amount,
			PaymentMethod:  req.PaymentMethod,
			Description:    req.Description,
			Type:           shared.EntryType(req.Type),
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		})
	})
}

func (h *TransactionHandler) Payment(c *gin.Context) {
	req, amount, ok := bindAmount(c)
	if !ok {
		return
	}
	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Payment(c.Request.Context(), paymentRequest(c, req, amount))
	})
}

// Authorize records a PENDING payment that moves no money until settled
func (h *TransactionHandler) Authorize(c *gin.Context) {
	req, amount, ok := bindAmount(c)
	if !ok {
		return
	}
	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Authorize(c.Request.Context(), paymentRequest(c, req, amount))
	})
}

// Transfer returns the outgoing leg; both legs share its correlation reference
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Amount must be a decimal string")
		return
	}

	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Transfer(c.Request.Context(), service.TransferRequest{
			SourceRef:      req.SourceRef,
			DestinationRef: req.DestinationRef,
			Amount:         amount,
			Description:    req.Description,
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		})
	})
}

func (h *TransactionHandler) Settle(c *gin.Context) {
	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Settle(c.Request.Context(), c.Param("ref"))
	})
}

func (h *TransactionHandler) Cancel(c *gin.Context) {
	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Cancel(c.Request.Context(), c.Param("ref"))
	})
}

func (h *TransactionHandler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	h.respondEntry(c, func() (*ledger.Entry, error) {
		return h.ledger.Refund(c.Request.Context(), service.RefundRequest{
			TransactionRef: c.Param("ref"),
			Reason:         req.Reason,
			IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
		})
	})
}

func (h *TransactionHandler) Get(c *gin.Context) {
	entry, err := h.ledger.GetEntry(c.Request.Context(), c.Param("ref"))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEntry(entry))
}

// GetTransfer returns both legs of a transfer, outgoing first
func (h *TransactionHandler) GetTransfer(c *gin.Context) {
	legs, err := h.ledger.GetTransferLegs(c.Request.Context(), c.Param("correlation"))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEntries(legs))
}

func (h *TransactionHandler) respondEntry(c *gin.Context, run func() (*ledger.Entry, error)) {
	entry, err := run()
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEntry(entry))
}

func bindAmount(c *gin.Context) (AmountRequest, decimal.Decimal, bool) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return req, decimal.Zero, false
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Amount must be a decimal string")
		return req, decimal.Zero, false
	}
	return req, amount, true
}

func paymentRequest(c *gin.Context, req AmountRequest, amount decimal.Decimal) service.PaymentRequest {
	return service.PaymentRequest{
		WalletRef:      req.WalletRef,
		Amount:         amount,
		PaymentMethod:  req.PaymentMethod,
		Description:    req.Description,
		IdempotencyKey: idempotencyKey(c, req.IdempotencyKey),
	}
}

// idempotencyKey prefers the body field over the header
func idempotencyKey(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(IdempotencyKeyHeader)
}
