package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/enterprise-wallet-ledger/internal/domain/ledger"
	"github.com/enterprise-wallet-ledger/internal/domain/limit"
	"github.com/enterprise-wallet-ledger/internal/domain/shared"
	"github.com/enterprise-wallet-ledger/internal/domain/wallet"
	"github.com/enterprise-wallet-ledger/internal/transaction_processor/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testWallet() *wallet.Wallet {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return &wallet.Wallet{
		ID:        uuid.New(),
		Reference: "WLT-1",
		OwnerRef:  "USR-1",
		Balance:   decimal.RequireFromString("150.5"),
		Currency:  "PKR",
		Status:    wallet.StatusActive,
		Type:      wallet.TypePersonal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func doRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if s, ok := body.(string); ok {
		reader = bytes.NewReader([]byte(s))
	} else if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func setupWalletRouter(ledgerSvc *MockLedgerService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWalletHandler(testLogger(), ledgerSvc)
	router := gin.New()
	router.POST("/wallets", h.Open)
	router.GET("/wallets", h.List)
	router.GET("/wallets/:ref", h.Get)
	router.PATCH("/wallets/:ref/status", h.ChangeStatus)
	router.GET("/wallets/:ref/limits", h.GetLimits)
	router.PUT("/wallets/:ref/limits", h.UpdateLimits)
	router.GET("/wallets/:ref/transactions", h.History)
	router.GET("/wallets/:ref/reconciliation", h.Reconcile)
	return router
}

func TestWalletHandler_Open(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		setupMock  func(m *MockLedgerService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "opens wallet",
			body: OpenWalletRequest{OwnerRef: "USR-1", Type: "PERSONAL"},
			setupMock: func(m *MockLedgerService) {
				m.On("OpenWallet", mock.Anything, service.OpenWalletRequest{OwnerRef: "USR-1", Type: wallet.TypePersonal}).
					Return(testWallet(), nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing owner",
			body:       map[string]string{"currency": "PKR"},
			setupMock:  func(m *MockLedgerService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name:       "unknown type",
			body:       OpenWalletRequest{OwnerRef: "USR-1", Type: "JOINT"},
			setupMock:  func(m *MockLedgerService) {},
			wantStatus: http.StatusBadRequest,
			wantCode:   "BAD_REQUEST",
		},
		{
			name: "store failure is hidden",
			body: OpenWalletRequest{OwnerRef: "USR-1"},
			setupMock: func(m *MockLedgerService) {
				m.On("OpenWallet", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledgerSvc := &MockLedgerService{}
			tt.setupMock(ledgerSvc)

			w := doRequest(setupWalletRouter(ledgerSvc), http.MethodPost, "/wallets", tt.body, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			if tt.wantCode != "" {
				errInfo := body["error"].(map[string]interface{})
				assert.Equal(t, tt.wantCode, errInfo["code"])
				assert.NotContains(t, w.Body.String(), "connection refused")
			} else {
				data := body["data"].(map[string]interface{})
				assert.Equal(t, "WLT-1", data["reference"])
				assert.Equal(t, "150.50", data["balance"])
			}
			ledgerSvc.AssertExpectations(t)
		})
	}
}

func TestWalletHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		ledgerSvc.On("GetWallet", mock.Anything, "WLT-1").Return(testWallet(), nil).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets/WLT-1", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "ACTIVE", data["status"])
	})

	t.Run("not found", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		ledgerSvc.On("GetWallet", mock.Anything, "WLT-X").
			Return(nil, wallet.ErrWalletNotFound{Reference: "WLT-X"}).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets/WLT-X", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		errInfo := decode(t, w)["error"].(map[string]interface{})
		assert.Equal(t, string(service.KindNotFound), errInfo["code"])
		assert.Equal(t, false, errInfo["retryable"])
	})
}

func TestWalletHandler_List(t *testing.T) {
	t.Run("requires owner", func(t *testing.T) {
		w := doRequest(setupWalletRouter(&MockLedgerService{}), http.MethodGet, "/wallets", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lists owner wallets", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		ledgerSvc.On("ListWallets", mock.Anything, "USR-1").Return([]*wallet.Wallet{testWallet()}, nil).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets?owner_ref=USR-1", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].([]interface{})
		assert.Len(t, data, 1)
	})
}

func TestWalletHandler_ChangeStatus(t *testing.T) {
	ledgerSvc := &MockLedgerService{}
	frozen := testWallet()
	frozen.Status = wallet.StatusFrozen
	ledgerSvc.On("ChangeWalletStatus", mock.Anything, "WLT-1", wallet.StatusFrozen).Return(frozen, nil).Once()
	router := setupWalletRouter(ledgerSvc)

	w := doRequest(router, http.MethodPatch, "/wallets/WLT-1/status", ChangeStatusRequest{Status: "FROZEN"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FROZEN", decode(t, w)["data"].(map[string]interface{})["status"])

	w = doRequest(router, http.MethodPatch, "/wallets/WLT-1/status", ChangeStatusRequest{Status: "DELETED"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	ledgerSvc.AssertExpectations(t)
}

func TestWalletHandler_Limits(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	l := limit.New(uuid.New(), limit.DefaultCaps(), now)
	l.DailySpent = decimal.NewFromInt(1000)

	t.Run("get", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		ledgerSvc.On("GetLimits", mock.Anything, "WLT-1").Return(l, nil).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets/WLT-1/limits", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "1000.00", data["daily_spent"])
		assert.Equal(t, "2026-10-15", data["last_daily_reset"])
	})

	t.Run("update", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		caps := limit.Caps{
			Daily:          decimal.NewFromInt(2000),
			Monthly:        decimal.NewFromInt(9000),
			PerTransaction: decimal.NewFromInt(800),
		}
		ledgerSvc.On("UpdateLimits", mock.Anything, "WLT-1", mock.MatchedBy(func(c limit.Caps) bool {
			return c.Daily.Equal(caps.Daily) && c.Monthly.Equal(caps.Monthly) && c.PerTransaction.Equal(caps.PerTransaction)
		})).Return(l, nil).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodPut, "/wallets/WLT-1/limits",
			UpdateLimitsRequest{DailyLimit: "2000", MonthlyLimit: "9000", PerTransactionLimit: "800"}, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		ledgerSvc.AssertExpectations(t)
	})

	t.Run("update rejects non-decimal caps", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodPut, "/wallets/WLT-1/limits",
			UpdateLimitsRequest{DailyLimit: "lots", MonthlyLimit: "9000", PerTransactionLimit: "800"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		ledgerSvc.AssertNotCalled(t, "UpdateLimits", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("update with zero cap maps to invalid", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		ledgerSvc.On("UpdateLimits", mock.Anything, "WLT-1", mock.Anything).Return(nil, limit.ErrInvalidCaps).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodPut, "/wallets/WLT-1/limits",
			UpdateLimitsRequest{DailyLimit: "0", MonthlyLimit: "9000", PerTransactionLimit: "800"}, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(service.KindInvalid), decode(t, w)["error"].(map[string]interface{})["code"])
	})
}

func TestWalletHandler_History(t *testing.T) {
	entry := &ledger.Entry{
		Reference: "TXN-1",
		WalletRef: "WLT-1",
		Type:      shared.EntryTypeTopUp,
		Amount:    decimal.NewFromInt(100),
		Currency:  "PKR",
		Status:    shared.EntryStatusCompleted,
		CreatedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
	}

	t.Run("defaults pagination", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}
		ledgerSvc.On("History", mock.Anything, "WLT-1", 1, 20).Return(&service.HistoryPage{
			WalletRef: "WLT-1",
			Entries:   []*ledger.Entry{entry},
			Page:      1,
			PerPage:   20,
			Total:     1,
			Totals:    ledger.Totals{Credits: decimal.NewFromInt(100), Debits: decimal.NewFromInt(40)},
		}, nil).Once()

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets/WLT-1/transactions", nil, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		data := body["data"].(map[string]interface{})
		assert.Len(t, data["entries"], 1)
		assert.Equal(t, "60.00", data["totals"].(map[string]interface{})["net"])
		meta := body["meta"].(map[string]interface{})
		assert.Equal(t, float64(1), meta["total_items"])
	})

	t.Run("rejects oversized page", func(t *testing.T) {
		ledgerSvc := &MockLedgerService{}

		w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets/WLT-1/transactions?per_page=500", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		ledgerSvc.AssertNotCalled(t, "History", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestWalletHandler_Reconcile(t *testing.T) {
	ledgerSvc := &MockLedgerService{}
	ledgerSvc.On("Reconcile", mock.Anything, "WLT-1").Return(&service.Reconciliation{
		WalletRef:     "WLT-1",
		Balance:       decimal.NewFromInt(60),
		LedgerBalance: decimal.NewFromInt(60),
		Totals:        ledger.Totals{Credits: decimal.NewFromInt(100), Debits: decimal.NewFromInt(40)},
		Consistent:    true,
	}, nil).Once()

	w := doRequest(setupWalletRouter(ledgerSvc), http.MethodGet, "/wallets/WLT-1/reconciliation", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["consistent"])
	assert.Equal(t, "60.00", data["ledger_balance"])
}
