package providerobs

import (
	"context"

	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/trace"
	"econ-calendar-bot/internal/types"
)

type observableProvider struct {
	provider interfaces.ReleaseProvider
}

var _ interfaces.ReleaseProvider = (*observableProvider)(nil)

// Wrap wraps a provider with logging and tracing
func Wrap(provider interfaces.ReleaseProvider) interfaces.ReleaseProvider {
	return &observableProvider{provider: provider}
}

func (o *observableProvider) FetchReleases(ctx context.Context, date string) ([]types.Release, error) {
	timer := logger.StartOperation(ctx, "provider.FetchReleases", "date", date)
	releases, err := o.provider.FetchReleases(timer.GetContext(), date)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}
	timer.End("releases", len(releases))
	return releases, nil
}

func (o *observableProvider) FetchEarnings(ctx context.Context, date string) ([]types.Release, error) {
	ctx, span := trace.StartSpan(ctx, "provider.FetchEarnings")
	defer span.End()

	releases, err := o.provider.FetchEarnings(ctx, date)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch earnings", err, "date", date)
		return nil, err
	}
	logger.DebugSkip(ctx, 1, "Earnings fetched", "date", date, "count", len(releases))
	return releases, nil
}
