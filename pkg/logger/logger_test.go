package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("development"))
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("production"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestGet_BeforeInitIsNoop(t *testing.T) {
	mu.Lock()
	global = nil
	mu.Unlock()

	l := Get()
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("nothing") })
}

func TestInit(t *testing.T) {
	require.NoError(t, Init(&Config{Level: "info", ServiceName: "reservemytable-test"}))
	assert.NotNil(t, Get().Logger)
	Sync()
}

func TestCtx_AddsTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{Logger: zap.New(core)}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.Ctx(ctx).Info("with trace")
	l.Ctx(context.Background()).Info("without trace")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, traceID.String(), entries[0].ContextMap()["trace_id"])
	_, has := entries[1].ContextMap()["trace_id"]
	assert.False(t, has)
}
