package logx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func capture(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	c, logs := observer.New(zapcore.DebugLevel)
	SetOutput(c)
	t.Cleanup(func() {
		SetOutput(nil)
		SetDebug(false)
		SetDebugDomains(nil)
	})
	return logs
}

func TestLoggerTagsComponent(t *testing.T) {
	logs := capture(t)

	NewLogger("router").Info("routed to %s", "Search")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "routed to Search", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "router", entry.ContextMap()["component"])
}

func TestLoggerWithQueryID(t *testing.T) {
	logs := capture(t)

	NewLogger("pipeline").WithQueryID("q-1").Warn("failed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "q-1", logs.All()[0].ContextMap()["query_id"])
}

func TestLoggerDebugRequiresEnable(t *testing.T) {
	logs := capture(t)
	l := NewLogger("gate")

	SetDebug(false)
	l.Debug("hidden")
	assert.Equal(t, 0, logs.Len())

	SetDebug(true)
	l.Debug("shown")
	assert.Equal(t, 1, logs.FilterMessage("shown").Len())
}

func TestDomainDebugFiltering(t *testing.T) {
	logs := capture(t)
	SetDebug(true)
	SetDebugDomains([]string{"router", " gate "})

	ctx := WithQueryID(context.Background(), "q-7")
	Debug(ctx, "router", "decision %d", 1)
	Debug(ctx, "gate", "scan")
	Debug(ctx, "refine", "dropped")

	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, 0, logs.FilterMessage("dropped").Len())
	assert.Equal(t, "q-7", logs.FilterMessage("decision 1").All()[0].ContextMap()["query_id"])
	assert.True(t, IsDebugEnabledForDomain("gate"))
	assert.False(t, IsDebugEnabledForDomain("refine"))
}

func TestDebugState(t *testing.T) {
	logs := capture(t)
	SetDebug(true)

	DebugState(context.Background(), "pipeline", "enter", "ROUTING", "agent pending")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "State enter: ROUTING - agent pending", logs.All()[0].Message)
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, SetLevel(LevelWarn))
	t.Cleanup(func() { _ = SetLevel(LevelInfo) })
	assert.False(t, IsDebugEnabled())

	assert.Error(t, SetLevel("verbose"))

	lvl, err := ParseLevel(LevelError)
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, lvl)
}

func TestSetFormat(t *testing.T) {
	assert.NoError(t, SetFormat("json"))
	assert.NoError(t, SetFormat("console"))
	assert.Error(t, SetFormat("xml"))
}

func TestWrapAndErrorf(t *testing.T) {
	logs := capture(t)
	base := errors.New("boom")

	err := Wrap(base, "listen")
	require.Error(t, err)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "listen: boom", err.Error())
	assert.Nil(t, Wrap(nil, "ignored"))

	err = Errorf("setup failed: %w", base)
	assert.ErrorIs(t, err, base)
	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}
