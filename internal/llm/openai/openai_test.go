package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/types"
)

func TestInferTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])
		w.Write([]byte(`{"choices":[{"message":{"content":"14:30 Uhr"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
	cfg, err := store.ParseConfig([]byte("llm:\n  provider: OPENAI\n  model: gpt-test\n"))
	require.NoError(t, err)

	inf, err := New(cfg)
	require.NoError(t, err)
	tod, err := inf.InferTime(context.Background(), types.Macro("2024-05-03", types.TimeOfDay{}, "united states", "Nonfarm Payrolls", 3))
	require.NoError(t, err)
	assert.Equal(t, "14:30", tod.String())
}

func TestMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := store.ParseConfig(nil)
	require.NoError(t, err)
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestHTTPErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_ENDPOINT", srv.URL)
	cfg, err := store.ParseConfig(nil)
	require.NoError(t, err)
	inf, err := New(cfg)
	require.NoError(t, err)

	_, err = inf.InferTime(context.Background(), types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "ifo", 2))
	assert.Error(t, err)
}
