package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-calendar-bot/internal/llm"
	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/types"
)

func TestInferTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ck-test", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, llm.SystemPrompt, body["system"])
		w.Write([]byte(`{"content":[{"type":"text","text":"08:00 Uhr"}]}`))
	}))
	defer srv.Close()

	t.Setenv("CLAUDE_API_KEY", "ck-test")
	t.Setenv("CLAUDE_API_ENDPOINT", srv.URL)
	cfg, err := store.ParseConfig(nil)
	require.NoError(t, err)

	inf, err := New(cfg)
	require.NoError(t, err)
	tod, err := inf.InferTime(context.Background(), types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "Verbraucherpreisindex", 3))
	require.NoError(t, err)
	assert.Equal(t, "08:00", tod.String())
}

func TestUnknownAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"unbekannt"}]}`))
	}))
	defer srv.Close()

	t.Setenv("CLAUDE_API_KEY", "ck-test")
	t.Setenv("CLAUDE_API_ENDPOINT", srv.URL)
	cfg, err := store.ParseConfig(nil)
	require.NoError(t, err)
	inf, err := New(cfg)
	require.NoError(t, err)

	tod, err := inf.InferTime(context.Background(), types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "x", 2))
	require.NoError(t, err)
	assert.False(t, tod.Known())
}
