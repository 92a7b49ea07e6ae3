package llmobs

import (
	"context"

	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/trace"
	"econ-calendar-bot/internal/types"
)

// observableInferrer wraps a TimeInferrer with logging and tracing
type observableInferrer struct {
	inferrer interfaces.TimeInferrer
}

var _ interfaces.TimeInferrer = (*observableInferrer)(nil)

// Wrap wraps an inferrer with observability middleware
func Wrap(inferrer interfaces.TimeInferrer) interfaces.TimeInferrer {
	return &observableInferrer{inferrer: inferrer}
}

func (o *observableInferrer) InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error) {
	ctx, span := trace.StartSpan(ctx, "llm.InferTime")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Inferring release time", "kind", r.Kind, "title", r.Title, "country", r.Country, "ticker", r.Ticker)

	tod, err := o.inferrer.InferTime(ctx, r)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Time inference failed", err, "title", r.Title)
		return types.TimeOfDay{}, err
	}

	logger.InfoSkip(ctx, 1, "Release time inferred", "title", r.Title, "time", tod.String(), "known", tod.Known())
	return tod, nil
}
