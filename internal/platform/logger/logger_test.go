package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNewLoggerLogsAtInfo(t *testing.T) {
	l := NewLogger()
	require.NotNil(t, l)
	core := l.Zap().Core()
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}

func TestNewBuildsJSONLogger(t *testing.T) {
	l, err := New(Options{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
}

func TestGameHelpersUseExpectedLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := Wrap(zap.New(core))

	l.NutrientGain(2.5, "click")
	l.GeneratorPurchase("Root Sprout", 3, 13.2)
	l.DevCommand("SetNutrients", "amount: 5")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "click", entries[0].ContextMap()["source"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "Root Sprout", entries[1].ContextMap()["generator"])
	assert.EqualValues(t, 3, entries[1].ContextMap()["count"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "Dev command executed", entries[2].Message)
}

func TestEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := Wrap(zap.New(core))

	l.Event("GAME_SAVED", "player", "slot default")

	entries := logs.FilterMessage("event").AllUntimed()
	require.Len(t, entries, 1)
	assert.Equal(t, "GAME_SAVED", entries[0].ContextMap()["type"])
}
