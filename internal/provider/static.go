package provider

import (
	"context"

	"econ-calendar-bot/internal/types"
)

// StaticProvider serves a fixed demo calendar for any date. Times are left
// Unknown so inference runs; the ECB row already has an actual.
type StaticProvider struct {
	releases []types.Release
	earnings []types.Release
}

func NewStaticProvider() *StaticProvider {
	cpi := types.Macro("", types.TimeOfDay{}, "germany", "Verbraucherpreisindex (VPI)", 3)
	cpi.Forecast, cpi.Previous = "6.1%", "6.5%"

	nfp := types.Macro("", types.TimeOfDay{}, "united states", "Non-Farm Payrolls", 3)
	nfp.Forecast, nfp.Previous = "180k", "175k"

	ecb := types.Macro("", types.TimeOfDay{}, "germany", "EZB Zinsentscheid", 3)
	ecb.Actual, ecb.Forecast, ecb.Previous = "3,75", "3,50", "3,25"

	aapl := types.Earnings("", types.TimeOfDay{}, "AAPL", "Apple Inc.")
	aapl.TimeText = "after market close"
	aapl.EPSActual, aapl.EPSEstimate = "1,45", "1,39"
	aapl.RevenueActual, aapl.RevenueEstimate = "81,2", "79,5"

	return NewStaticProviderWith([]types.Release{cpi, nfp, ecb}, []types.Release{aapl})
}

// NewStaticProviderWith serves the given rows; Date is stamped per request.
func NewStaticProviderWith(releases, earnings []types.Release) *StaticProvider {
	return &StaticProvider{releases: releases, earnings: earnings}
}

func (p *StaticProvider) FetchReleases(_ context.Context, date string) ([]types.Release, error) {
	return stamp(p.releases, date), nil
}

func (p *StaticProvider) FetchEarnings(_ context.Context, date string) ([]types.Release, error) {
	return stamp(p.earnings, date), nil
}

func stamp(in []types.Release, date string) []types.Release {
	out := make([]types.Release, len(in))
	for i, r := range in {
		r.Date = date
		out[i] = r
	}
	return out
}
