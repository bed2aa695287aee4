package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetupDevMode(t *testing.T) {
	t.Setenv("SF_LOG_LEVEL", "")
	logger, err := Setup(true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestSetupProdMode(t *testing.T) {
	t.Setenv("SF_LOG_LEVEL", "")
	logger, err := Setup(false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestSetupLevelOverride(t *testing.T) {
	t.Setenv("SF_LOG_LEVEL", "WARN")
	logger, err := Setup(true)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func serveLogged(t *testing.T, path string, status int) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	handler := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	return logs
}

func TestRequestLogger(t *testing.T) {
	logs := serveLogged(t, "/api/listings", http.StatusOK)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/listings", fields["path"])
	assert.EqualValues(t, 200, fields["status"])
}

func TestRequestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		want   zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusBadGateway, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		logs := serveLogged(t, "/questionnaire", tt.status)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, tt.want, logs.All()[0].Level, "status %d", tt.status)
	}
}

func TestRequestLoggerSkipsStatic(t *testing.T) {
	assert.Zero(t, serveLogged(t, "/static/app.js", http.StatusOK).Len())
	assert.Zero(t, serveLogged(t, "/health", http.StatusOK).Len())
}
