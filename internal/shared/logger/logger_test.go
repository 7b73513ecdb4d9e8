package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
}

func TestLogger_WritesEntryFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewWithCore("market-service", core)

	log.Error(Entry{
		Action:    "preference_store_read_failed",
		Message:   "connection refused",
		RequestID: "req-1",
		UserID:    "user-1",
		Error:     &ErrObj{Msg: "connection refused"},
		Additional: map[string]any{
			"step": "database",
		},
	})

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, e.Level)
	assert.Equal(t, "connection refused", e.Message)

	ctx := e.ContextMap()
	assert.Equal(t, "market-service", ctx["service"])
	assert.Equal(t, "preference_store_read_failed", ctx["action"])
	assert.Equal(t, "req-1", ctx["request_id"])
	assert.Equal(t, "user-1", ctx["user_id"])
	assert.Equal(t, map[string]any{"msg": "connection refused"}, ctx["error"])
	assert.Equal(t, map[string]any{"step": "database"}, ctx["additional"])
}

func TestLogger_RespectsLevel(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore("geo-service", core)

	log.Debug(Entry{Action: "stage_started"})
	log.Info(Entry{Action: "location_acquired"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "location_acquired", logs.All()[0].ContextMap()["action"])
}

func TestLogger_WithAddsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewWithCore("geo-service", core).With(map[string]any{"device_id": "dev-9"})

	log.Info(Entry{Action: "presence_shared"})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dev-9", logs.All()[0].ContextMap()["device_id"])
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() {
		log.Info(Entry{Action: "noop"})
		log.Sync()
	})
}
