package openai

import (
	"context"
	"errors"
	"os"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/llm"
	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/trace"
	"econ-calendar-bot/internal/types"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Inferrer asks the chat completions API for a release time.
type Inferrer struct {
	cfg      *store.Config
	apiKey   string
	endpoint string
	client   *api.Client
}

// New reads OPENAI_API_KEY; OPENAI_API_ENDPOINT overrides the URL.
func New(cfg *store.Config, opts ...api.ClientOption) (*Inferrer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY missing")
	}
	endpoint := defaultEndpoint
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}
	opts = append([]api.ClientOption{api.WithTimeout(cfg.Provider.Timeout)}, opts...)
	return &Inferrer{cfg: cfg, apiKey: apiKey, endpoint: endpoint, client: api.NewClient(opts...)}, nil
}

func (d *Inferrer) InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	model := d.cfg.LLM.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	body := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": llm.SystemPrompt},
			{"role": "user", "content": llm.Prompt(r)},
		},
		"temperature": d.cfg.LLM.Temperature,
		"max_tokens":  d.cfg.LLM.MaxTokens,
	}

	resp, err := d.client.POST(ctx, d.endpoint, body, map[string]string{"Authorization": "Bearer " + d.apiKey})
	if err != nil {
		return types.TimeOfDay{}, err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return types.TimeOfDay{}, err
	}
	if len(out.Choices) == 0 {
		return types.TimeOfDay{}, errors.New("no choices")
	}
	return llm.ParseAnswer(out.Choices[0].Message.Content), nil
}
