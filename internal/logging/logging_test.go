package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captured(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	l := New("marina-test", level, "json")
	buf := &bytes.Buffer{}
	l.Logger.SetOutput(buf)
	return l, buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	return out
}

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("svc", "debug", "json").Logger.GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("svc", "nonsense", "json").Logger.GetLevel())
	_, ok := New("svc", "info", "text").Logger.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx))

	ctx = WithTraceID(ctx, "trace-1")
	ctx = WithUserID(ctx, "42")
	ctx = WithRole(ctx, "admin")

	assert.Equal(t, "trace-1", GetTraceID(ctx))
	assert.Equal(t, "42", GetUserID(ctx))
	assert.Equal(t, "admin", GetRole(ctx))
	assert.NotEqual(t, NewTraceID(), NewTraceID())
}

func TestWithContextAddsFields(t *testing.T) {
	l, buf := captured(t, "info")
	ctx := WithRole(WithUserID(WithTraceID(context.Background(), "abc"), "7"), "admin")

	l.WithContext(ctx).Info("hello")

	line := decodeLine(t, buf)
	assert.Equal(t, "abc", line["trace_id"])
	assert.Equal(t, "7", line["user_id"])
	assert.Equal(t, "admin", line["role"])
	assert.Equal(t, "marina-test", line["service"])
}

func TestLogRequestLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "info"},
		{404, "warning"},
		{503, "error"},
	}
	for _, tt := range tests {
		l, buf := captured(t, "info")
		l.LogRequest(context.Background(), "GET", "/api/boats", tt.status, 5*time.Millisecond)
		line := decodeLine(t, buf)
		assert.Equal(t, tt.level, line["level"], "status %d", tt.status)
		assert.EqualValues(t, tt.status, line["status"])
	}
}

func TestLogSecurityEvent(t *testing.T) {
	l, buf := captured(t, "info")
	l.LogSecurityEvent(context.Background(), "rate_limit_exceeded", map[string]interface{}{"key": "1.2.3.4"})

	line := decodeLine(t, buf)
	assert.Equal(t, "rate_limit_exceeded", line["security_event"])
	assert.Equal(t, "1.2.3.4", line["key"])
}

func TestNamed(t *testing.T) {
	l, buf := captured(t, "info")
	l.Named("cache").Info("x")
	line := decodeLine(t, buf)
	assert.Equal(t, "cache", line["component"])
	assert.Equal(t, "marina-test", l.Service())
}
