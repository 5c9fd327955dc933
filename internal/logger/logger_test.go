package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/enterprise-wallet-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		name     string
		value    string
		expected slog.Level
	}{
		{"DebugLevel", "debug", slog.LevelDebug},
		{"InfoLevel", "info", slog.LevelInfo},
		{"WarnLevel", "warn", slog.LevelWarn},
		{"WarningAlias", "WARNING", slog.LevelWarn},
		{"ErrorLevel", "error", slog.LevelError},
		{"DefaultToInfo", "unknown", slog.LevelInfo},
		{"EmptyToInfo", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseLevel(tc.value))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("LevelIsApplied", func(t *testing.T) {
		logger := NewLogger(&config.Config{Logging: config.LoggingConfig{Level: "warn"}})
		require.NotNil(t, logger)

		assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
		assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	})

	t.Run("ServiceAttributesAreAttached", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := &config.Config{
			Application: config.ApplicationConfig{Name: "wallet-ledger", Env: "test"},
			Logging:     config.LoggingConfig{Level: "info"},
		}

		logger := newLogger(&buf, cfg)
		buf.Reset()
		logger.Info("wallet created", "wallet_ref", "WLT-ABC")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "wallet-ledger", record["service"])
		assert.Equal(t, "test", record["env"])
		assert.Equal(t, "WLT-ABC", record["wallet_ref"])
		assert.Equal(t, "INFO", record["level"])
	})
}
