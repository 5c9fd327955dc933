package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/enterprise-wallet-ledger/internal/api_gateway/handler"
	"github.com/enterprise-wallet-ledger/internal/api_gateway/middleware"
	"github.com/gin-gonic/gin"
)

// routes groups the handlers mounted by setupRouter. Commands is nil when
// asynchronous submission is disabled.
type routes struct {
	wallets      *handler.WalletHandler
	transactions *handler.TransactionHandler
	commands     *handler.CommandHandler
	metrics      http.Handler
	metricsPath  string
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h routes) {
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))

	v1 := r.Group("/api/v1")
	{
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", h.wallets.Open)
			wallets.GET("", h.wallets.List)
			wallets.GET("/:ref", h.wallets.Get)
			wallets.PATCH("/:ref/status", h.wallets.ChangeStatus)
			wallets.GET("/:ref/limits", h.wallets.GetLimits)
			wallets.PUT("/:ref/limits", h.wallets.UpdateLimits)
			wallets.GET("/:ref/transactions", h.wallets.History)
			wallets.GET("/:ref/reconciliation", h.wallets.Reconcile)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("/credit", h.transactions.Credit)
			transactions.POST("/debit", h.transactions.Debit)
			transactions.POST("/payment", h.transactions.Payment)
			transactions.POST("/authorize", h.transactions.Authorize)
			transactions.POST("/transfer", h.transactions.Transfer)
			transactions.GET("/:ref", h.transactions.Get)
			transactions.POST("/:ref/settle", h.transactions.Settle)
			transactions.POST("/:ref/cancel", h.transactions.Cancel)
			transactions.POST("/:ref/refund", h.transactions.Refund)
		}

		v1.GET("/transfers/:correlation", h.transactions.GetTransfer)

		if h.commands != nil {
			v1.POST("/commands", h.commands.Submit)
		}
	}

	if h.metrics != nil {
		r.GET(h.metricsPath, gin.WrapH(h.metrics))
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
