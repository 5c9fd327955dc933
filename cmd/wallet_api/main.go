package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/enterprise-wallet-ledger/internal/api_gateway"
	"github.com/enterprise-wallet-ledger/internal/api_gateway/service"
	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/enterprise-wallet-ledger/internal/data/memory"
	"github.com/enterprise-wallet-ledger/internal/data/postgres"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/logger"
	"github.com/enterprise-wallet-ledger/internal/platform/messaging/producers"
	"github.com/enterprise-wallet-ledger/internal/platform/metrics"
	"github.com/enterprise-wallet-ledger/internal/platform/notify"
	"github.com/enterprise-wallet-ledger/internal/platform/persistence"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/components"
	tpservice "github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("wallet_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	// Unit of work: Postgres in production, in-process store for local runs
	var uow unitofwork.UnitOfWork
	var postgresDB *persistence.PostgresDB
	switch cfg.Ledger.Store {
	case config.StoreMemory:
		log.Warn("Using in-memory ledger store; balances are lost on restart")
		uow = memory.NewStore(log, cfg.Ledger.LockTimeout)
	default:
		postgresDB, err = persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
		if err != nil {
			log.Error("Failed to initialize PostgreSQL", "error", err)
			os.Exit(1)
		}
		uow = postgres.NewUnitOfWork(log, postgresDB.Pool(), cfg.Ledger.LockTimeout)
	}

	var notifier tpservice.Notifier = notify.NewNoopNotifier()
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		notifier = notify.NewRedisNotifier(redisClient, cfg.Redis.ChannelPrefix, log)
	}

	var recorder tpservice.MetricsRecorder = metrics.NewNoopRecorder()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		recorder = metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	engine, err := components.CreateLedgerEngine(uow, notifier, recorder, log, cfg)
	if err != nil {
		log.Error("Failed to create ledger engine", "error", err)
		os.Exit(1)
	}

	// Asynchronous submission is optional; the synchronous API works without a broker
	var commandService service.CommandService
	commandProducer, err := producers.NewCommandProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Warn("Kafka command producer unavailable, /api/v1/commands disabled", "error", err)
	} else {
		commandService = service.NewCommandService(log, components.NewCommandValidator(log), commandProducer)
	}

	server := api_gateway.NewServer(log, cfg, engine, commandService, metricsHandler)
	log.Info("REST server initialized", "store", cfg.Ledger.Store)

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	// Drain HTTP first so no request is cut off mid-transaction
	if err = server.Stop(context.Background(), cfg.Server.ShutdownTimeout); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if commandProducer != nil {
		if err = commandProducer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
		}
	}

	closeInfra(log, postgresDB, redisClient)

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
		os.Exit(1)
	}
	log.Info("Server shutdown completed successfully")
}

func closeInfra(log *slog.Logger, postgresDB *persistence.PostgresDB, redisClient *redis.Client) {
	if postgresDB != nil {
		postgresDB.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}
}
