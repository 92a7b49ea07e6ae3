package claude

import (
	"context"
	"errors"
	"os"
	"strings"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/llm"
	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/trace"
	"econ-calendar-bot/internal/types"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
)

// Inferrer implements interfaces.TimeInferrer over the Anthropic Messages API.
type Inferrer struct {
	cfg      *store.Config
	apiKey   string
	endpoint string
	client   *api.Client
}

// New reads CLAUDE_API_KEY. If you use a proxy, set CLAUDE_API_ENDPOINT.
func New(cfg *store.Config, opts ...api.ClientOption) (*Inferrer, error) {
	apiKey := os.Getenv("CLAUDE_API_KEY")
	if apiKey == "" {
		return nil, errors.New("CLAUDE_API_KEY missing")
	}
	endpoint := defaultEndpoint
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	opts = append([]api.ClientOption{
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithHeader("anthropic-version", apiVersion),
	}, opts...)
	return &Inferrer{cfg: cfg, apiKey: apiKey, endpoint: endpoint, client: api.NewClient(opts...)}, nil
}

func (d *Inferrer) InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error) {
	ctx, span := trace.StartSpan(ctx, "claude-api-call")
	defer span.End()

	model := d.cfg.LLM.Model
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	reqBody := map[string]any{
		"model":       model,
		"system":      llm.SystemPrompt,
		"messages":    []map[string]string{{"role": "user", "content": llm.Prompt(r)}},
		"max_tokens":  d.cfg.LLM.MaxTokens,
		"temperature": d.cfg.LLM.Temperature,
	}

	resp, err := d.client.POST(ctx, d.endpoint, reqBody, map[string]string{"x-api-key": d.apiKey})
	if err != nil {
		return types.TimeOfDay{}, err
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		// Not JSON? treat the raw body as the answer
		return llm.ParseAnswer(resp.String()), nil
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return llm.ParseAnswer(text.String()), nil
}
