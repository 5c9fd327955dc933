package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		withRequestID bool
		requestID     string
		handler       gin.HandlerFunc
		wantStatus    int
		wantLog       []string
	}{
		{
			name:          "string panic keeps caller request id",
			withRequestID: true,
			requestID:     "req-panic-1",
			handler:       func(c *gin.Context) { panic("lock table corrupted") },
			wantStatus:    http.StatusInternalServerError,
			wantLog: []string{
				`"msg":"Panic recovered"`,
				`"error":"lock table corrupted"`,
				`"request_id":"req-panic-1"`,
				`"method":"POST"`,
				`"stack":`,
			},
		},
		{
			name:          "error panic",
			withRequestID: true,
			handler:       func(c *gin.Context) { panic(errors.New("nil wallet")) },
			wantStatus:    http.StatusInternalServerError,
			wantLog:       []string{`"error":"nil wallet"`},
		},
		{
			name:       "panic without request id middleware",
			handler:    func(c *gin.Context) { panic("boom") },
			wantStatus: http.StatusInternalServerError,
			wantLog:    []string{`"request_id":""`},
		},
		{
			name:          "no panic",
			withRequestID: true,
			handler:       func(c *gin.Context) { c.String(http.StatusOK, "OK") },
			wantStatus:    http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuffer bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelError}))

			router := gin.New()
			if tt.withRequestID {
				router.Use(RequestID())
			}
			router.Use(Recovery(logger))
			router.POST("/api/v1/transactions/debit", tt.handler)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/debit", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Empty(t, logBuffer.String())
				return
			}

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			errorField := body["error"].(map[string]interface{})
			assert.Equal(t, "INTERNAL_SERVER_ERROR", errorField["code"])
			assert.NotContains(t, rr.Body.String(), "nil wallet")

			if tt.withRequestID {
				assert.Equal(t, rr.Header().Get(RequestIDHeader), body["request_id"])
			} else {
				assert.NotContains(t, body, "request_id")
			}

			for _, fragment := range tt.wantLog {
				assert.Contains(t, logBuffer.String(), fragment)
			}
		})
	}
}
