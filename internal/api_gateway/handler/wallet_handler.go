package handler

import (
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler serves wallet administration, limits and history
type WalletHandler struct {
	ledger service.LedgerService
	logger *slog.Logger
}

func NewWalletHandler(logger *slog.Logger, ledger service.LedgerService) *WalletHandler {
	return &WalletHandler{
		ledger: ledger,
		logger: logger,
	}
}

// Open creates a wallet with a zero balance and default limits
func (h *WalletHandler) Open(c *gin.Context) {
	var req OpenWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.ledger.OpenWallet(c.Request.Context(), service.OpenWalletRequest{
		OwnerRef: req.OwnerRef,
		Currency: req.Currency,
		Type:     wallet.Type(req.Type),
	})
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapWallet(w))
}

func (h *WalletHandler) Get(c *gin.Context) {
	w, err := h.ledger.GetWallet(c.Request.Context(), c.Param("ref"))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapWallet(w))
}

// List returns the wallets of the owner named by ?owner_ref=
func (h *WalletHandler) List(c *gin.Context) {
	ownerRef := c.Query("owner_ref")
	if ownerRef == "" {
		RespondBadRequest(c, "owner_ref query parameter is required")
		return
	}

	wallets, err := h.ledger.ListWallets(c.Request.Context(), ownerRef)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}

	response := make([]WalletResponse, 0, len(wallets))
	for _, w := range wallets {
		response = append(response, mapWallet(w))
	}
	RespondOK(c, response)
}

func (h *WalletHandler) ChangeStatus(c *gin.Context) {
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.ledger.ChangeWalletStatus(c.Request.Context(), c.Param("ref"), wallet.Status(req.Status))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapWallet(w))
}

func (h *WalletHandler) GetLimits(c *gin.Context) {
	ref := c.Param("ref")
	l, err := h.ledger.GetLimits(c.Request.Context(), ref)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapLimits(ref, l))
}

func (h *WalletHandler) UpdateLimits(c *gin.Context) {
	var req UpdateLimitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var caps limit.Caps
	var err error
	for _, field := range []struct {
		raw  string
		dest *decimal.Decimal
	}{
		{req.DailyLimit, &caps.Daily},
		{req.MonthlyLimit, &caps.Monthly},
		{req.PerTransactionLimit, &caps.PerTransaction},
	} {
		if *field.dest, err = decimal.NewFromString(field.raw); err != nil {
			RespondBadRequest(c, "Limits must be decimal strings")
			return
		}
	}

	ref := c.Param("ref")
	l, err := h.ledger.UpdateLimits(c.Request.Context(), ref, caps)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapLimits(ref, l))
}

// History returns a page of entries, newest first, with the wallet's applied totals
func (h *WalletHandler) History(c *gin.Context) {
	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	page, err := h.ledger.History(c.Request.Context(), c.Param("ref"), params.Page, params.PerPage)
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, HistoryResponse{
		WalletRef: page.WalletRef,
		Entries:   mapEntries(page.Entries),
		Totals:    mapTotals(page.Totals),
	}, page.Page, page.PerPage, page.Total)
}

func (h *WalletHandler) Reconcile(c *gin.Context) {
	r, err := h.ledger.Reconcile(c.Request.Context(), c.Param("ref"))
	if err != nil {
		RespondLedgerError(c, h.logger, err)
		return
	}
	RespondOK(c, mapReconciliation(r))
}
