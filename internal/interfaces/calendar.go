package interfaces

import (
	"context"

	"econ-calendar-bot/internal/types"
)

// ReleaseProvider fetches the calendar for one date (types.DateLayout).
// Errors are *provider.Error wrapping provider.ErrUnavailable or provider.ErrParse.
type ReleaseProvider interface {
	FetchReleases(ctx context.Context, date string) ([]types.Release, error)
	FetchEarnings(ctx context.Context, date string) ([]types.Release, error)
}

// TimeInferrer guesses a publication time for a release whose provider time is Unknown.
// An Unknown result with nil error means "no idea".
type TimeInferrer interface {
	InferTime(ctx context.Context, r types.Release) (types.TimeOfDay, error)
}

// Sink delivers one structured message to a destination.
type Sink interface {
	Send(ctx context.Context, msg types.Message) error
}
