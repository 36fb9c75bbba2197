package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewZapOTELCore_Disabled(t *testing.T) {
	core := NewZapOTELCore("kontor", &LoggerProvider{}, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	core = NewZapOTELCore("kontor", nil, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	logger := zap.New(core).With(zap.String("tenant_id", "t1"))
	logger.Info("dropped")
	logger.Warn("kept")

	assert.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "t1", entry.ContextMap()["tenant_id"])
}

func TestNewBridgedLogger(t *testing.T) {
	baseCore, baseLogs := observer.New(zapcore.InfoLevel)
	otelCore, otelLogs := observer.New(zapcore.ErrorLevel)

	logger := NewBridgedLogger(zap.New(baseCore), otelCore)
	logger.Info("info")
	logger.Error("error")

	assert.Equal(t, 2, baseLogs.Len())
	assert.Equal(t, 1, otelLogs.Len())
}
