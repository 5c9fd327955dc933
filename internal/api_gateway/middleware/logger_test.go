package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequestDetails", func(t *testing.T) {
		var logBuffer bytes.Buffer
		testLogger := slog.New(slog.NewJSONHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelInfo}))

		router := gin.New()
		router.Use(RequestID())
		router.Use(Logger(testLogger))
		router.GET("/wallets/:ref", func(c *gin.Context) {
			c.String(http.StatusOK, "OK")
		})

		req, _ := http.NewRequest(http.MethodGet, "/wallets/WLT-1?page=2", nil)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(RequestIDHeader, "req-1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"INFO"`)
		assert.Contains(t, logOutput, `"msg":"HTTP request"`)
		assert.Contains(t, logOutput, `"path":"/wallets/WLT-1?page=2"`)
		assert.Contains(t, logOutput, `"route":"/wallets/:ref"`)
		assert.Contains(t, logOutput, `"status":200`)
		assert.Contains(t, logOutput, `"user_agent":"test-agent"`)
		assert.Contains(t, logOutput, `"request_id":"req-1"`)
	})

	t.Run("LevelFollowsStatus", func(t *testing.T) {
		var logBuffer bytes.Buffer
		testLogger := slog.New(slog.NewJSONHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelInfo}))

		router := gin.New()
		router.Use(Logger(testLogger))
		router.POST("/reject", func(c *gin.Context) { c.Status(http.StatusUnprocessableEntity) })
		router.POST("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		for _, path := range []string{"/reject", "/fail"} {
			req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader("body"))
			router.ServeHTTP(httptest.NewRecorder(), req)
		}

		logOutput := logBuffer.String()
		assert.Contains(t, logOutput, `"level":"WARN"`)
		assert.Contains(t, logOutput, `"level":"ERROR"`)
		assert.NotContains(t, logOutput, `"request_id"`)
	})
}
