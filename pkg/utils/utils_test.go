package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"orders@techsupplies.co.uk", false},
		{"a.b+c@example.com", false},
		{"no-at-sign.com", true},
		{"user@host", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateEmail(tt.email)
		assert.Equal(t, tt.wantErr, err != nil, tt.email)
	}
}

func TestValidateCurrency(t *testing.T) {
	assert.NoError(t, ValidateCurrency("EUR"))
	assert.NoError(t, ValidateCurrency("USD"))
	assert.Error(t, ValidateCurrency("eur"))
	assert.Error(t, ValidateCurrency("EURO"))
	assert.Error(t, ValidateCurrency(""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Amazon AWS", SanitizeString("  Amazon\x00 AWS\x7f \n"))
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	logger.Info("store hydrated", zap.Int("requests", 3))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"store hydrated"`)
	assert.Contains(t, string(data), `"requests":3`)
	assert.Contains(t, string(data), `"timestamp"`)
}

func TestNewLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "loud", OutputPath: "stderr", Format: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestSugaredAdapter(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	adapter := NewSugaredAdapter(zap.New(core))

	adapter.Info("Request created", "request_id", "exp-1")
	adapter.Error("Persist failed", "request_id", "exp-1", "error", "disk full")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Request created", entries[0].Message)
	assert.Equal(t, "exp-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "disk full", entries[1].ContextMap()["error"])
}
