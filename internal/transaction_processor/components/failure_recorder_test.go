package components

import (
	"context"
	"errors"
	"testing"
	"time"

	"log/slog"

	"github.com/enterprise-wallet-ledger/internal/domain/audit"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestFailureRecorder_RecordFailure(t *testing.T) {
	command := &shared.LedgerCommand{
		CommandID: "cmd-1",
		Operation: shared.OperationWithdrawal,
		WalletRef: "WLT-1",
		Amount:    "800",
		RequestID: "req-1",
	}
	cause := errors.New("insufficient balance in wallet WLT-1")
	fixed := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		cause         error
		setupMocks    func(mockRepo *MockAuditRepo)
		expectedError error
	}{
		{
			name:  "record rejection",
			cause: cause,
			setupMocks: func(mockRepo *MockAuditRepo) {
				mockRepo.On("RecordRejection", mock.Anything, &audit.Rejection{
					CommandID:     "cmd-1",
					Operation:     "WITHDRAWAL",
					WalletRef:     "WLT-1",
					Amount:        "800",
					ErrorKind:     string(service.KindInsufficientBalance),
					FailureReason: cause.Error(),
					RequestID:     "req-1",
					RejectedAt:    fixed,
				}).Return(nil).Once()
			},
		},
		{
			name:  "missing cause",
			cause: nil,
			setupMocks: func(mockRepo *MockAuditRepo) {
				mockRepo.On("RecordRejection", mock.Anything, mock.MatchedBy(func(r *audit.Rejection) bool {
					return r.FailureReason == "unknown error"
				})).Return(nil).Once()
			},
		},
		{
			name:  "error recording rejection",
			cause: cause,
			setupMocks: func(mockRepo *MockAuditRepo) {
				mockRepo.On("RecordRejection", mock.Anything, mock.Anything).Return(errors.New("mongo error")).Once()
			},
			expectedError: errors.New("mongo error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := &MockAuditRepo{}
			tt.setupMocks(mockRepo)

			recorder := NewFailureRecorder(mockRepo, slog.Default()).(*FailureRecorderImpl)
			recorder.now = func() time.Time { return fixed }

			err := recorder.RecordFailure(context.Background(), command, service.KindInsufficientBalance, tt.cause)

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}
