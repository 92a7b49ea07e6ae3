package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"econ-calendar-bot/internal/logger"
)

func TestPOSTSendsJSONAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "bot", r.Header.Get("User-Agent"))
		assert.Equal(t, "k", r.Header.Get("X-Key"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHeader("User-Agent", "bot"))
	resp, err := c.POST(context.Background(), "/x", map[string]string{"a": "b"}, map[string]string{"X-Key": "k"})
	require.NoError(t, err)

	var out struct{ OK bool }
	require.NoError(t, resp.ParseJSON(&out))
	assert.True(t, out.OK)
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient().GET(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestDoWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	resp, err := NewClient().DoWithRetry(NewRequest(http.MethodGet, srv.URL), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.String())
	assert.EqualValues(t, 3, calls.Load())
}

func TestDoWithRetryStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	_, err := NewClient().DoWithRetry(NewRequest(http.MethodGet, srv.URL), cfg)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestWithLoggingTracesRequests(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	t.Cleanup(func() { logger.SetLogger(zap.NewNop()) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	_, err := NewClient().GET(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Zero(t, logs.Len())

	_, err = NewClient(WithLogging(true)).GET(context.Background(), srv.URL)
	require.Error(t, err)
	var msgs []string
	for _, e := range logs.All() {
		msgs = append(msgs, e.Message)
	}
	assert.Equal(t, []string{"HTTP Request", "HTTP Response", "HTTP error response"}, msgs)
	assert.EqualValues(t, http.StatusTeapot, logs.All()[2].ContextMap()["status"])
}
