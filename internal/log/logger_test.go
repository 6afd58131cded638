package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("chatty")
	assert.Error(t, err)
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHTTP, Output: &buf})

	logger.Debug("hidden")
	logger.WithComponent(ComponentCache).Info("visible", "size", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "visible", rec["msg"])
	assert.Equal(t, ComponentCache, rec[FieldComponent])
	assert.EqualValues(t, 3, rec["size"])
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background())
	assert.Equal(t, "unknown", fallback.Component())

	logger := New(Config{Component: ComponentWorker, Output: &bytes.Buffer{}})
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestStructuredLogger_LevelsByStatus(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	req := httptest.NewRequest(http.MethodGet, "/api/stats?x=1", nil)

	for _, tc := range []struct {
		status int
		level  string
	}{{200, "INFO"}, {404, "WARN"}, {502, "ERROR"}} {
		buf.Reset()
		sl.LogHTTPEnd(context.Background(), req, tc.status, 12, "req-1", "10.0.0.1")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, tc.level, rec["level"])
		assert.EqualValues(t, tc.status, rec[FieldStatusCode])
		assert.Equal(t, "req-1", rec[FieldRequestID])
		assert.Equal(t, "x=1", rec[FieldQuery])
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), "report", nil)
	assert.Contains(t, buf.String(), `"error":"bad"`)
}
