package provider

import (
	"context"
	"net/url"
	"strings"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

// NasdaqEarningsProvider reads the public Nasdaq earnings calendar JSON and
// keeps only the configured tickers.
type NasdaqEarningsProvider struct {
	endpoint string
	tickers  map[string]bool
	client   *api.Client
}

func NewNasdaqEarningsProvider(endpoint string, tickers []string, opts ...api.ClientOption) *NasdaqEarningsProvider {
	set := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		set[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	opts = append([]api.ClientOption{api.WithHeaders(api.BrowserHeaders())}, opts...)
	return &NasdaqEarningsProvider{endpoint: endpoint, tickers: set, client: api.NewClient(opts...)}
}

type nasdaqResponse struct {
	Data *struct {
		Rows []nasdaqRow `json:"rows"`
	} `json:"data"`
}

type nasdaqRow struct {
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	Time            string `json:"time"`
	EPS             string `json:"eps"`
	EPSForecast     string `json:"epsForecast"`
	Revenue         string `json:"revenue"`
	RevenueForecast string `json:"revenueForecast"`
}

var sessionHints = map[string]string{
	"time-pre-market":  "before market open",
	"time-after-hours": "after market close",
}

func (p *NasdaqEarningsProvider) FetchEarnings(ctx context.Context, date string) ([]types.Release, error) {
	if len(p.tickers) == 0 {
		return nil, nil
	}

	resp, err := p.client.GET(ctx, p.endpoint+"?date="+url.QueryEscape(date))
	if err != nil {
		return nil, unavailable("nasdaq", "FetchEarnings", err)
	}

	var out nasdaqResponse
	if err := resp.ParseJSON(&out); err != nil {
		return nil, parseFailure("nasdaq", "FetchEarnings", err)
	}
	if out.Data == nil {
		return nil, nil
	}

	var releases []types.Release
	for _, row := range out.Data.Rows {
		ticker := strings.ToUpper(strings.TrimSpace(row.Symbol))
		if !p.tickers[ticker] {
			continue
		}
		hint := sessionHints[row.Time]
		if hint == "" {
			hint = row.Time
		}
		tod, _ := types.ParseTimeOfDay(hint)

		r := types.Earnings(date, tod, ticker, strings.TrimSpace(row.Name))
		r.TimeText = hint
		r.EPSActual = money(row.EPS)
		r.EPSEstimate = money(row.EPSForecast)
		r.RevenueActual = money(row.Revenue)
		r.RevenueEstimate = money(row.RevenueForecast)
		releases = append(releases, r)
	}

	logger.Debug(ctx, "Earnings fetched", "date", date, "matched", len(releases), "rows", len(out.Data.Rows))
	return releases, nil
}

// money turns "$1.45" into "1.45" and "($0.12)" into "-0.12"; "N/A" becomes "".
func money(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "n/a") || s == "--" {
		return ""
	}
	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if neg {
		return "-" + s
	}
	return s
}
