package service

import (
	"context"
	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService bounds how many commands run against the engine at once
type WorkerPoolProcessingService struct {
	baseService CommandProcessor
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService CommandProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessCommand submits a command to the worker pool and waits for its result
func (s *WorkerPoolProcessingService) ProcessCommand(ctx context.Context, command *shared.LedgerCommand) error {
	logger := s.logger
	if command.RequestID != "" {
		logger = s.logger.With("request_id", command.RequestID)
	}

	logger.Debug("Submitting command to worker pool",
		"command_id", command.CommandID,
		"operation", command.Operation,
	)

	resultChan := make(chan error, 1)

	// Create a copy of the command to avoid data races
	commandCopy := *command

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessCommand(ctx, &commandCopy)
	})
	if err != nil {
		logger.Error("Failed to submit command to worker pool",
			"command_id", command.CommandID,
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
