package llm

import (
	"context"
	"sync"

	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

// chain asks each inferrer in turn until one returns a known time.
type chain struct {
	inferrers []interfaces.TimeInferrer
}

// Chain returns an inferrer that falls through on error or Unknown.
func Chain(inferrers ...interfaces.TimeInferrer) interfaces.TimeInferrer {
	return &chain{inferrers: inferrers}
}

func (c *chain) InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error) {
	var lastErr error
	for _, inf := range c.inferrers {
		tod, err := inf.InferTime(ctx, r)
		if err != nil {
			lastErr = err
			logger.Warn(ctx, "Time inference failed, trying next", "title", r.Title, "error", err)
			continue
		}
		if tod.Known() {
			return tod, nil
		}
	}
	if lastErr != nil {
		return types.TimeOfDay{}, lastErr
	}
	return types.TimeOfDay{}, nil
}

// cached memoizes known answers per release so a model is asked once per day,
// not once per poll.
type cached struct {
	next interfaces.TimeInferrer
	mu   sync.Mutex
	hits map[string]types.TimeOfDay
}

// Cached wraps next with an in-memory answer cache.
func Cached(next interfaces.TimeInferrer) interfaces.TimeInferrer {
	return &cached{next: next, hits: make(map[string]types.TimeOfDay)}
}

func cacheKey(r types.Release) string {
	return types.Identity{string(r.Kind), r.Date, r.Country, r.Title, r.Ticker}.Key()
}

func (c *cached) InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error) {
	key := cacheKey(r)
	c.mu.Lock()
	tod, ok := c.hits[key]
	c.mu.Unlock()
	if ok {
		return tod, nil
	}

	tod, err := c.next.InferTime(ctx, r)
	if err != nil || !tod.Known() {
		return tod, err
	}
	c.mu.Lock()
	c.hits[key] = tod
	c.mu.Unlock()
	return tod, nil
}
