package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GlobalLogger
	GlobalLogger = NewLogger(&buf, level, true)
	t.Cleanup(func() { GlobalLogger = prev })
	return &buf
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestAPILogger_IncludesRequestID(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	ctx := WithRequestID(context.Background(), "req-42")
	ctx = WithTraceID(ctx, "4bf92f3577b34da6a3ce929d0e0e4736")
	NewAPILogger("feed").LogRequest(ctx, "GET", "/posts/", 200, 0)

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-42"`)
	assert.Contains(t, out, `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)
	assert.Contains(t, out, `"path":"/posts/"`)
	assert.Contains(t, out, `"status":200`)
}

func TestLogRollback_CountsAndLogsAtDebug(t *testing.T) {
	buf := captureLogs(t, slog.LevelDebug)

	before := testutil.ToFloat64(OptimisticRollbacks.WithLabelValues("comment"))
	LogRollback(context.Background(), "comment", 9, errors.New("api status 500"))

	assert.Equal(t, before+1, testutil.ToFloat64(OptimisticRollbacks.WithLabelValues("comment")))
	assert.Contains(t, buf.String(), "optimistic update rolled back")
}

func TestLogIntent_CountsOutcome(t *testing.T) {
	captureLogs(t, slog.LevelInfo)

	before := testutil.ToFloat64(DeferredIntents.WithLabelValues("like_post", "dispatched"))
	LogIntent(context.Background(), "like_post", "dispatched")
	assert.Equal(t, before+1, testutil.ToFloat64(DeferredIntents.WithLabelValues("like_post", "dispatched")))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "agora-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	span, _ := StartClientSpan(context.Background(), "GET", "/posts/")
	span.SetError(errors.New("ignored"))
	span.End()
}

func TestStartClientSpan_TraceIDReachesLogs(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	shutdown, err := InitTracing(TracingConfig{
		ServiceName:  "agora-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 1,
		StdoutWriter: io.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	span, ctx := StartClientSpan(context.Background(), "GET", "/posts/")
	defer span.End()

	id := span.TraceID()
	require.Len(t, id, 32)
	assert.NotEqual(t, strings.Repeat("0", 32), id)

	NewAPILogger("feed").LogError(WithTraceID(ctx, id), "GET", "/posts/", errors.New("refused"))
	assert.Contains(t, buf.String(), `"trace_id":"`+id+`"`)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	APIRequests.WithLabelValues("GET", "/posts/", "200").Inc()
	srv := NewMetricsServer(":0")

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = srv.App().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "agora_api_requests_total"))
}
