package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCommandProcessor mocks the CommandProcessor interface
type MockCommandProcessor struct {
	mock.Mock
}

func (m *MockCommandProcessor) ProcessCommand(ctx context.Context, command *shared.LedgerCommand) error {
	args := m.Called(ctx, command)
	return args.Error(0)
}

func TestWorkerPoolProcessingService_ProcessCommand(t *testing.T) {
	logger := slog.Default()

	command := &shared.LedgerCommand{
		CommandID: "cmd-1",
		Operation: shared.OperationTopUp,
		WalletRef: "WLT-1",
		Amount:    "100.00",
		RequestID: "req-1",
	}

	tests := []struct {
		name          string
		setupMocks    func(m *MockCommandProcessor)
		expectedError error
	}{
		{
			name: "successful processing",
			setupMocks: func(m *MockCommandProcessor) {
				m.On("ProcessCommand", mock.Anything, mock.MatchedBy(func(c *shared.LedgerCommand) bool {
					return c.CommandID == "cmd-1"
				})).Return(nil).Once()
			},
		},
		{
			name: "processing error",
			setupMocks: func(m *MockCommandProcessor) {
				m.On("ProcessCommand", mock.Anything, mock.Anything).Return(errors.New("processing error")).Once()
			},
			expectedError: errors.New("processing error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseService := &MockCommandProcessor{}
			workerPoolService, err := NewWorkerPoolProcessingService(mockBaseService, WorkerPoolConfig{Size: 2}, logger)
			require.NoError(t, err)
			defer workerPoolService.Shutdown()

			tt.setupMocks(mockBaseService)

			err = workerPoolService.ProcessCommand(context.Background(), command)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolProcessingService_ContextCancelled(t *testing.T) {
	mockBaseService := &MockCommandProcessor{}
	release := make(chan struct{})
	mockBaseService.On("ProcessCommand", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-release
	}).Return(nil)

	workerPoolService, err := NewWorkerPoolProcessingService(mockBaseService, WorkerPoolConfig{Size: 1}, slog.Default())
	require.NoError(t, err)
	defer workerPoolService.Shutdown()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = workerPoolService.ProcessCommand(ctx, &shared.LedgerCommand{CommandID: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWorkerPoolProcessingService_Concurrency(t *testing.T) {
	mockBaseService := &MockCommandProcessor{}
	logger := slog.Default()

	workerPoolService, err := NewWorkerPoolProcessingService(mockBaseService, WorkerPoolConfig{Size: 5}, logger)
	require.NoError(t, err)
	defer workerPoolService.Shutdown()

	var mu sync.Mutex
	counter := 0

	mockBaseService.On("ProcessCommand", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		// Simulate some work
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		counter++
		mu.Unlock()
	}).Return(nil)

	numCommands := 10
	var wg sync.WaitGroup
	wg.Add(numCommands)

	for i := 0; i < numCommands; i++ {
		go func(i int) {
			defer wg.Done()

			command := &shared.LedgerCommand{
				CommandID: fmt.Sprintf("cmd-%d", i),
				Operation: shared.OperationTopUp,
				WalletRef: "WLT-1",
				Amount:    "10",
				RequestID: fmt.Sprintf("req-%d", i),
			}
			assert.NoError(t, workerPoolService.ProcessCommand(context.Background(), command))
		}(i)
	}

	wg.Wait()

	assert.Equal(t, numCommands, counter)
	assert.True(t, workerPoolService.Running() > 0)
	assert.Equal(t, 5, workerPoolService.Capacity())
}
