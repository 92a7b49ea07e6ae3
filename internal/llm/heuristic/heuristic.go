// Package heuristic infers publication times without a model. Only earnings
// session hints and literal clock times in the provider text are trusted;
// everything else stays Unknown.
package heuristic

import (
	"context"
	"strings"

	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

var (
	beforeOpen = types.At(13, 0)
	afterClose = types.At(22, 5)
)

// Inferrer never errors.
type Inferrer struct{}

func New() *Inferrer {
	return &Inferrer{}
}

func (h *Inferrer) InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error) {
	if r.Kind == types.KindEarnings {
		tod := sessionTime(r.TimeText)
		logger.Debug(ctx, "Heuristic earnings time", "ticker", r.Ticker, "hint", r.TimeText, "time", tod.String())
		return tod, nil
	}
	tod, _ := types.ParseTimeOfDay(r.TimeText)
	return tod, nil
}

func sessionTime(hint string) types.TimeOfDay {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "before market open"), strings.Contains(h, "pre-market"), strings.Contains(h, "bmo"):
		return beforeOpen
	case strings.Contains(h, "after market close"), strings.Contains(h, "after-hours"), strings.Contains(h, "amc"):
		return afterClose
	}
	if tod, ok := types.ParseTimeOfDay(hint); ok {
		return tod
	}
	return types.TimeOfDay{}
}
