package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/enterprise-wallet-ledger/internal/data/memory"
	"github.com/enterprise-wallet-ledger/internal/data/mongo"
	"github.com/enterprise-wallet-ledger/internal/data/postgres"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/logger"
	"github.com/enterprise-wallet-ledger/internal/platform/messaging/consumers"
	"github.com/enterprise-wallet-ledger/internal/platform/messaging/producers"
	"github.com/enterprise-wallet-ledger/internal/platform/metrics"
	"github.com/enterprise-wallet-ledger/internal/platform/notify"
	"github.com/enterprise-wallet-ledger/internal/platform/persistence"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/components"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/consumer"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/outbox_poller"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("ledger_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"store", cfg.Ledger.Store,
	)

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

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB, cfg.Application.Name)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())
	if err = auditRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create audit indexes", "error", err)
		os.Exit(1)
	}

	var notifier service.Notifier = notify.NewNoopNotifier()
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		notifier = notify.NewRedisNotifier(redisClient, cfg.Redis.ChannelPrefix, log)
	}

	var recorder service.MetricsRecorder = metrics.NewNoopRecorder()
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		recorder = metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:     mux,
			ReadTimeout: cfg.Server.ReadTimeout,
			IdleTimeout: cfg.Server.IdleTimeout,
		}
	}

	engine, err := components.CreateLedgerEngine(uow, notifier, recorder, log, cfg)
	if err != nil {
		log.Error("Failed to create ledger engine", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	processingService := components.CreateProcessingService(engine, auditRepo, log, cfg)
	commandHandler := consumer.NewCommandHandler(log, processingService, deadLetters)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		uow,
		outbox_poller.NewAuditPublisher(auditRepo, log),
		log,
	)

	errChan := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.CommandTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, commandHandler.HandleMessage, commandHandler.HandleExhausted); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	if metricsServer != nil {
		go func() {
			log.Info("Serving metrics", "port", cfg.Server.Port, "path", cfg.Metrics.Path)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if metricsServer != nil {
		if err = metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Error stopping metrics server", "error", err)
		}
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if postgresDB != nil {
		postgresDB.Close()
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Ledger Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Ledger Processor shutdown completed successfully")
}
