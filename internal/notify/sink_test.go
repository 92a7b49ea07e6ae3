package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/journal"
	"econ-calendar-bot/internal/types"
)

type webhookServer struct {
	mu       sync.Mutex
	posts    []webhookPayload
	queries  []string
	deleted  chan string
	status   int
	requests int
}

func newWebhookServer(t *testing.T) (*webhookServer, *httptest.Server) {
	ws := &webhookServer{deleted: make(chan string, 4), status: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.mu.Lock()
		defer ws.mu.Unlock()
		ws.requests++
		switch r.Method {
		case http.MethodPost:
			if ws.status != http.StatusOK {
				w.WriteHeader(ws.status)
				return
			}
			var p webhookPayload
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
			ws.posts = append(ws.posts, p)
			ws.queries = append(ws.queries, r.URL.RawQuery)
			if r.URL.Query().Get("wait") == "true" {
				fmt.Fprintf(w, `{"id":"m%d"}`, len(ws.posts))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodDelete:
			ws.deleted <- r.URL.Path
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(srv.Close)
	return ws, srv
}

func noRetry() DiscordOption {
	return WithRetry(&api.RetryConfig{MaxAttempts: 1})
}

func TestDiscordSinkPostsEmbed(t *testing.T) {
	ws, srv := newWebhookServer(t)
	sink, err := NewDiscordSink(srv.URL+"/api/webhooks/1/abc", "Wirtschaftskalender", noRetry())
	require.NoError(t, err)

	msg := types.Message{Title: "📊 VPI", Color: 0xe74c3c, Fields: []types.Field{{Name: "Ist", Value: "6.3%", Inline: true}}}
	require.NoError(t, sink.Send(context.Background(), msg))

	require.Len(t, ws.posts, 1)
	p := ws.posts[0]
	assert.Equal(t, "Wirtschaftskalender", p.Username)
	require.Len(t, p.Embeds, 1)
	assert.Equal(t, "📊 VPI", p.Embeds[0].Title)
	assert.Equal(t, 0xe74c3c, p.Embeds[0].Color)
	assert.Equal(t, "", ws.queries[0])
	assert.Zero(t, sink.Pending())
}

func TestDiscordSinkDeletesAfterTTL(t *testing.T) {
	ws, srv := newWebhookServer(t)
	clock := clockwork.NewFakeClock()
	sink, err := NewDiscordSink(srv.URL+"/api/webhooks/1/abc", "", noRetry(), WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), types.Message{Title: "⏰", TTL: 10 * time.Minute}))
	assert.Equal(t, "wait=true", ws.queries[0])
	assert.Equal(t, 1, sink.Pending())

	clock.Advance(9 * time.Minute)
	select {
	case <-ws.deleted:
		t.Fatal("deleted before TTL")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Minute)
	select {
	case path := <-ws.deleted:
		assert.Equal(t, "/api/webhooks/1/abc/messages/m1", path)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not deleted")
	}
	assert.Eventually(t, func() bool { return sink.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestDiscordSinkCloseDropsDeletions(t *testing.T) {
	ws, srv := newWebhookServer(t)
	clock := clockwork.NewFakeClock()
	sink, err := NewDiscordSink(srv.URL, "", noRetry(), WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), types.Message{Title: "x", TTL: time.Minute}))
	require.NoError(t, sink.Close())
	clock.Advance(time.Hour)

	select {
	case <-ws.deleted:
		t.Fatal("deletion fired after Close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDiscordSinkBreakerOpens(t *testing.T) {
	ws, srv := newWebhookServer(t)
	ws.status = http.StatusInternalServerError

	cb := circuitbreaker.NewBuilder[any]().WithFailureThreshold(1).WithDelay(time.Hour).Build()
	sink, err := NewDiscordSink(srv.URL, "", noRetry(), WithBreaker(cb))
	require.NoError(t, err)

	err = sink.Send(context.Background(), types.Message{Title: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDelivery)

	err = sink.Send(context.Background(), types.Message{Title: "b"})
	assert.ErrorIs(t, err, ErrDelivery)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)

	ws.mu.Lock()
	defer ws.mu.Unlock()
	assert.Equal(t, 1, ws.requests)
}

func TestNewDiscordSinkRequiresURL(t *testing.T) {
	_, err := NewDiscordSink("", "")
	assert.Error(t, err)
}

func TestEmbedsSplitFields(t *testing.T) {
	msg := types.Message{Title: strings.Repeat("t", 300)}
	for i := 0; i < 30; i++ {
		msg.Fields = append(msg.Fields, types.Field{Name: fmt.Sprint(i), Value: strings.Repeat("v", 2000)})
	}
	out := embeds(msg)
	require.Len(t, out, 2)
	assert.Len(t, []rune(out[0].Title), maxTitleLen)
	assert.Len(t, out[0].Fields, 25)
	assert.Len(t, out[1].Fields, 5)
	assert.Empty(t, out[1].Title)
	assert.Len(t, []rune(out[0].Fields[0].Value), maxFieldValue)
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)
	require.NoError(t, sink.Send(context.Background(), types.Message{Title: "a", Color: 1}))
	require.NoError(t, sink.Send(context.Background(), types.Message{Title: "b"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var m types.Message
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
	assert.Equal(t, "a", m.Title)
}

type failingSink struct{}

func (failingSink) Send(context.Context, types.Message) error {
	return fmt.Errorf("%w: boom", ErrDelivery)
}

func TestJournalSinkRecordsOutcome(t *testing.T) {
	dir := t.TempDir()
	j := journal.New(dir, time.UTC)

	var buf bytes.Buffer
	ok := NewJournalSink(NewConsoleSink(&buf), j)
	require.NoError(t, ok.Send(context.Background(), types.Message{Title: "ok"}))

	bad := NewJournalSink(failingSink{}, j)
	err := bad.Send(context.Background(), types.Message{Title: "bad"})
	assert.True(t, errors.Is(err, ErrDelivery))

	path := dir + "/" + time.Now().UTC().Format(types.DateLayout) + ".jsonl"
	data, rerr := readFile(path)
	require.NoError(t, rerr)
	assert.Contains(t, data, `"title":"ok","color":0,"delivered":true`)
	assert.Contains(t, data, `"delivered":false,"error":"notification delivery failed: boom"`)
}

func readFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	return string(b), err
}
