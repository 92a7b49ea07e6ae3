package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

// ErrDelivery wraps every sink failure.
var ErrDelivery = errors.New("notification delivery failed")

// Webhook embed limits.
const (
	maxEmbeds     = 10
	maxFields     = 25
	maxTitleLen   = 256
	maxFieldName  = 256
	maxFieldValue = 1024
	deleteTimeout = 10 * time.Second
)

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title  string        `json:"title,omitempty"`
	Color  int           `json:"color"`
	Fields []types.Field `json:"fields,omitempty"`
}

// DiscordSink posts messages as webhook embeds. Messages with a TTL are
// posted with wait=true and deleted once the TTL elapses.
type DiscordSink struct {
	webhookURL string
	username   string
	client     *api.Client
	breaker    circuitbreaker.CircuitBreaker[any]
	retry      *api.RetryConfig
	clock      clockwork.Clock

	mu      sync.Mutex
	pending map[string]clockwork.Timer
}

type DiscordOption func(*DiscordSink)

func WithClock(c clockwork.Clock) DiscordOption {
	return func(s *DiscordSink) { s.clock = c }
}

func WithBreaker(cb circuitbreaker.CircuitBreaker[any]) DiscordOption {
	return func(s *DiscordSink) { s.breaker = cb }
}

func WithRetry(cfg *api.RetryConfig) DiscordOption {
	return func(s *DiscordSink) { s.retry = cfg }
}

func WithClientOptions(opts ...api.ClientOption) DiscordOption {
	return func(s *DiscordSink) { s.client = api.NewClient(opts...) }
}

// NewBreaker opens after 3 failures in 5 sends and half-opens again after a minute.
func NewBreaker() circuitbreaker.CircuitBreaker[any] {
	return circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(3, 5).
		WithDelay(time.Minute).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			logger.Warn(context.Background(), "Webhook circuit breaker state change",
				"from", fmt.Sprint(e.OldState), "to", fmt.Sprint(e.NewState))
		}).
		Build()
}

func NewDiscordSink(webhookURL, username string, opts ...DiscordOption) (*DiscordSink, error) {
	if webhookURL == "" {
		return nil, errors.New("DISCORD_WEBHOOK_URL missing")
	}
	if _, err := url.Parse(webhookURL); err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}
	s := &DiscordSink{
		webhookURL: webhookURL,
		username:   username,
		client:     api.NewClient(api.WithTimeout(15 * time.Second)),
		retry:      &api.RetryConfig{MaxAttempts: 2, InitialWait: 2 * time.Second, MaxWait: 5 * time.Second},
		clock:      clockwork.NewRealClock(),
		pending:    make(map[string]clockwork.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = NewBreaker()
	}
	return s, nil
}

func (s *DiscordSink) Send(ctx context.Context, msg types.Message) error {
	target := s.webhookURL
	if msg.TTL > 0 {
		target = withQuery(s.webhookURL, "wait", "true")
	}
	payload := webhookPayload{Username: s.username, Embeds: embeds(msg)}

	out, err := failsafe.With(s.breaker).WithContext(ctx).Get(func() (any, error) {
		req := api.NewRequest(http.MethodPost, target).WithContext(ctx).WithBody(payload)
		return s.client.DoWithRetry(req, s.retry)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	if msg.TTL > 0 {
		resp, _ := out.(*api.Response)
		s.scheduleDelete(ctx, resp, msg.TTL)
	}
	return nil
}

func (s *DiscordSink) scheduleDelete(ctx context.Context, resp *api.Response, ttl time.Duration) {
	var created struct {
		ID string `json:"id"`
	}
	if resp == nil || resp.ParseJSON(&created) != nil || created.ID == "" {
		logger.Warn(ctx, "Webhook response carried no message id, message will not expire")
		return
	}

	id := created.ID
	s.mu.Lock()
	s.pending[id] = s.clock.AfterFunc(ttl, func() { s.delete(id) })
	s.mu.Unlock()
}

func (s *DiscordSink) delete(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()
	if _, err := s.client.DELETE(ctx, messageURL(s.webhookURL, id)); err != nil && !api.IsStatus(err, http.StatusNotFound) {
		logger.ErrorWithErr(ctx, "Failed to delete expired message", err, "message_id", id)
		return
	}
	logger.Debug(ctx, "Expired message deleted", "message_id", id)
}

// Pending is the number of messages waiting for deletion.
func (s *DiscordSink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close drops scheduled deletions; those messages stay in the channel.
func (s *DiscordSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
	return nil
}

func embeds(msg types.Message) []embed {
	title := clip(msg.Title, maxTitleLen)
	fields := make([]types.Field, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		fields = append(fields, types.Field{
			Name:   clip(f.Name, maxFieldName),
			Value:  clip(f.Value, maxFieldValue),
			Inline: f.Inline,
		})
	}

	// fields beyond one embed spill into follow-up embeds of the same message
	out := []embed{{Title: title, Color: msg.Color}}
	for i := 0; i < len(fields); i += maxFields {
		if i > 0 {
			if len(out) == maxEmbeds {
				break
			}
			out = append(out, embed{Color: msg.Color})
		}
		out[len(out)-1].Fields = fields[i:min(i+maxFields, len(fields))]
	}
	return out
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func withQuery(raw, key, value string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func messageURL(webhook, id string) string {
	u, err := url.Parse(webhook)
	if err != nil {
		return webhook + "/messages/" + id
	}
	u.Path = u.Path + "/messages/" + id
	return u.String()
}
