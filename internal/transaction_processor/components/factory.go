package components

import (
	"fmt"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/unitofwork"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/shopspring/decimal"
)

// CreateLedgerEngine builds the ledger engine over a unit of work with the configured policy
func CreateLedgerEngine(
	uow unitofwork.UnitOfWork,
	notifier service.Notifier,
	metrics service.MetricsRecorder,
	logger *slog.Logger,
	cfg *config.Config,
) (*service.LedgerEngine, error) {
	caps, err := DefaultCaps(&cfg.Ledger)
	if err != nil {
		return nil, err
	}

	limitPolicy := NewLimitPolicy(caps, logger.With("component", "limit_policy"))
	outboxManager := NewOutboxManager(logger.With("component", "outbox_manager"))

	return service.NewLedgerEngine(
		uow,
		limitPolicy,
		outboxManager,
		notifier,
		metrics,
		service.EngineConfig{
			MaxConflictRetries:   cfg.Ledger.MaxConflictRetries,
			RetryInitialInterval: cfg.Ledger.RetryInitialInterval,
			RetryMaxInterval:     cfg.Ledger.RetryMaxInterval,
			DefaultCurrency:      cfg.Ledger.DefaultCurrency,
			NotificationTimeout:  cfg.Ledger.NotificationTimeout,
		},
		logger.With("component", "ledger_engine"),
	), nil
}

// CreateProcessingService creates a new command processor with all its dependencies.
func CreateProcessingService(
	engine service.LedgerService,
	auditRepo audit.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.CommandProcessor {
	validator := NewCommandValidator(logger)
	failureRecorder := NewFailureRecorder(auditRepo, logger)

	baseService := service.NewProcessingService(
		engine,
		validator,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}

// DefaultCaps parses the configured default limits
func DefaultCaps(cfg *config.LedgerConfig) (limit.Caps, error) {
	var caps limit.Caps
	var err error

	if caps.Daily, err = decimal.NewFromString(cfg.DailyLimit); err != nil {
		return limit.Caps{}, fmt.Errorf("invalid daily limit %q: %w", cfg.DailyLimit, err)
	}
	if caps.Monthly, err = decimal.NewFromString(cfg.MonthlyLimit); err != nil {
		return limit.Caps{}, fmt.Errorf("invalid monthly limit %q: %w", cfg.MonthlyLimit, err)
	}
	if caps.PerTransaction, err = decimal.NewFromString(cfg.PerTransactionLimit); err != nil {
		return limit.Caps{}, fmt.Errorf("invalid per-transaction limit %q: %w", cfg.PerTransactionLimit, err)
	}
	if err := caps.Validate(); err != nil {
		return limit.Caps{}, err
	}
	return caps, nil
}
