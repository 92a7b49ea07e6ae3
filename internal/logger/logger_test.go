package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	SetLogger(zap.New(core))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	return logs
}

func TestLevelsAndFields(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)
	ctx := context.Background()

	Debug(ctx, "hidden")
	Info(ctx, "poll finished", "emitted", 2)
	Warn(ctx, "posted state reset", "bucket", "update")
	ErrorWithErr(ctx, "send failed", errors.New("boom"), "sink", "discord")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "poll finished", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["emitted"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[2].ContextMap()["error"])
	assert.Equal(t, "discord", entries[2].ContextMap()["sink"])
}

func TestNotificationAlwaysLogged(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)
	Notification(context.Background(), "update", "(NFP, 2026-10-16, united states)", true, "label", "POSITIVE")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "NOTIFICATION", fields["type"])
	assert.Equal(t, true, fields["delivered"])
	assert.Equal(t, "POSITIVE", fields["label"])
}

func TestOperationTimerEndWithError(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)
	op := StartOperation(context.Background(), "provider.FetchReleases", "date", "2026-10-16")
	op.EndWithError(errors.New("timeout"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Operation failed", entry.Message)
	assert.Equal(t, "provider.FetchReleases", entry.ContextMap()["operation"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("bogus"))
}

func TestCycleIDIsAttached(t *testing.T) {
	logs := observe(t, zapcore.InfoLevel)
	ctx := WithCycleID(context.Background(), "c-1")

	Info(ctx, "cycle started")
	Info(context.Background(), "no cycle")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "c-1", entries[0].ContextMap()["cycle_id"])
	assert.NotContains(t, entries[1].ContextMap(), "cycle_id")
	assert.Equal(t, "c-1", CycleID(ctx))
}

func TestDebugSwitch(t *testing.T) {
	t.Cleanup(func() {
		SetLogger(zap.NewNop())
		detailedLogging = false
	})

	require.NoError(t, InitWithConfig(LogConfig{Level: "INFO", Format: "json"}))
	assert.False(t, IsDebugEnabled())

	require.NoError(t, InitWithConfig(LogConfig{Level: "DEBUG", Format: "json"}))
	assert.True(t, IsDebugEnabled())

	require.NoError(t, InitWithConfig(LogConfig{Level: "WARN", Format: "json", DetailedLogging: true}))
	assert.True(t, IsDebugEnabled())
	assert.True(t, base.Core().Enabled(zapcore.DebugLevel))
}
