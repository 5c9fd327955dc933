package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("GeneratesRequestIDIfNotProvided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		var captured string
		router.GET("/test", func(c *gin.Context) {
			captured = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		header := rr.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(header)
		assert.NoError(t, err, "generated request ID should be a UUID")
		assert.Equal(t, header, captured)
	})

	t.Run("UsesRequestIDIfProvided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		var captured string
		router.GET("/test", func(c *gin.Context) {
			captured = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", captured)
	})

	t.Run("EmptyWithoutMiddleware", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Empty(t, GetRequestID(c))
	})
}
