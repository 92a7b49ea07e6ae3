package notifyobs

import (
	"context"

	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/trace"
	"econ-calendar-bot/internal/types"
)

type observableSink struct {
	sink interfaces.Sink
}

var _ interfaces.Sink = (*observableSink)(nil)

// Wrap wraps a sink with observability middleware
func Wrap(sink interfaces.Sink) interfaces.Sink {
	return &observableSink{sink: sink}
}

func (o *observableSink) Send(ctx context.Context, msg types.Message) error {
	ctx, span := trace.StartSpan(ctx, "notify.Send")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Sending notification", "title", msg.Title, "fields", len(msg.Fields), "ttl", msg.TTL)

	if err := o.sink.Send(ctx, msg); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Notification delivery failed", err, "title", msg.Title)
		return err
	}
	return nil
}
