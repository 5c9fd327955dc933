package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/enterprise-wallet-ledger/internal/api_gateway/handler"
	"github.com/enterprise-wallet-ledger/internal/api_gateway/service"
	"github.com/enterprise-wallet-ledger/internal/config"
	tpservice "github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/gin-gonic/gin"
)

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer wires the wallet and transaction handlers onto the ledger engine.
// commands and metricsHandler are optional.
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	ledger tpservice.LedgerService,
	commands service.CommandService,
	metricsHandler http.Handler,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	h := routes{
		wallets:      handler.NewWalletHandler(log, ledger),
		transactions: handler.NewTransactionHandler(log, ledger),
		metrics:      metricsHandler,
		metricsPath:  cfg.Metrics.Path,
	}
	if commands != nil {
		h.commands = handler.NewCommandHandler(log, commands)
	}
	if h.metricsPath == "" {
		h.metricsPath = "/metrics"
	}

	setupRouter(log, httpRouter, h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests, bounded by the configured shutdown timeout
func (s *Server) Stop(ctx context.Context, timeout time.Duration) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
