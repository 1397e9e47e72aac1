package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newJSONLogger() (*SlogLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newJSONLogger()
	ctx := context.Background()

	log.Debug(ctx, "nonce pruned", "removed", 2)
	log.Info(ctx, "expression stored", "log_index", 1)
	log.Warn(ctx, "rate limited", "bucket", "express")
	log.Error(ctx, "commit failed", "error", "boom")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)

	levels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, want := range levels {
		assert.Equal(t, want, lines[i]["level"])
	}
	assert.Equal(t, "expression stored", lines[1]["msg"])
	assert.EqualValues(t, 1, lines[1]["log_index"])
	assert.Equal(t, "express", lines[2]["bucket"])
	for _, l := range lines {
		assert.NotContains(t, l, RequestIDKey)
	}
}

func TestSlogLogger_RequestIDFromContext(t *testing.T) {
	log, buf := newJSONLogger()
	ctx := WithRequestID(context.Background(), "req_abc")

	log.With("component", "httpapi").Info(ctx, "request", "status", 200)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req_abc", lines[0][RequestIDKey])
	assert.Equal(t, "httpapi", lines[0]["component"])
	assert.EqualValues(t, 200, lines[0]["status"])
}

func TestSlogLogger_NilContext(t *testing.T) {
	log, buf := newJSONLogger()
	//nolint:staticcheck
	log.Info(nil, "startup")
	assert.Contains(t, buf.String(), `"msg":"startup"`)
}

func TestZapLogger_RequestIDFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := NewZapLogger(zap.New(core))

	log.Info(WithRequestID(context.Background(), "req_1"), "transfer stored")
	log.Info(context.Background(), "no id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req_1", entries[0].ContextMap()[RequestIDKey])
	assert.NotContains(t, entries[1].ContextMap(), RequestIDKey)
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.True(t, strings.HasPrefix(a, "req_"))
	assert.Len(t, a, len("req_")+32)
	assert.NotEqual(t, a, b)
	assert.Empty(t, RequestID(context.Background()))
}
