package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/types"
)

// Calendar markup selectors. Data attributes are read first, cells second.
const (
	tableSelector      = "table#economicCalendarData"
	rowSelector        = "tr.js-event-item"
	importanceSelector = ".grayFullBullishIcon"
)

var datetimeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
}

// InvestingProvider scrapes the investing.com economic calendar.
type InvestingProvider struct {
	baseURL   string
	countries map[string]bool
	threshold int
	timeout   time.Duration
	limiter   *rate.Limiter
	earnings  *NasdaqEarningsProvider
}

type InvestingOption func(*InvestingProvider)

// WithLimiter shares one limiter between providers hitting the same host.
func WithLimiter(l *rate.Limiter) InvestingOption {
	return func(p *InvestingProvider) { p.limiter = l }
}

// WithEarnings delegates FetchEarnings; without it earnings are always empty.
func WithEarnings(e *NasdaqEarningsProvider) InvestingOption {
	return func(p *InvestingProvider) { p.earnings = e }
}

func NewInvestingProvider(baseURL string, countries []string, threshold int, timeout time.Duration, opts ...InvestingOption) *InvestingProvider {
	set := make(map[string]bool, len(countries))
	for _, c := range countries {
		set[strings.ToLower(strings.TrimSpace(c))] = true
	}
	p := &InvestingProvider{
		baseURL:   strings.TrimSuffix(baseURL, "/") + "/",
		countries: set,
		threshold: threshold,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(0.5), 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *InvestingProvider) FetchReleases(ctx context.Context, date string) ([]types.Release, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, unavailable("investing", "FetchReleases", err)
	}

	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.MaxDepth(1),
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	if p.timeout > 0 {
		c.SetRequestTimeout(p.timeout)
	}

	c.OnRequest(func(r *colly.Request) {
		for k, v := range api.BrowserHeaders() {
			r.Headers.Set(k, v)
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml")
	})

	var (
		releases []types.Release
		found    bool
		skipped  int
	)
	c.OnHTML(tableSelector, func(e *colly.HTMLElement) {
		found = true
		e.DOM.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
			r, ok := p.parseRow(row, date)
			if !ok {
				skipped++
				return
			}
			releases = append(releases, r)
		})
	})

	var visitErr error
	c.OnError(func(r *colly.Response, err error) {
		visitErr = err
		logger.ErrorWithErr(ctx, "Calendar scrape error", err, "url", r.Request.URL.String(), "status", r.StatusCode)
	})

	url := p.baseURL + date
	if err := c.Visit(url); err != nil && visitErr == nil {
		visitErr = err
	}
	c.Wait()

	if visitErr != nil {
		return nil, unavailable("investing", "FetchReleases", visitErr)
	}
	if !found {
		return nil, parseFailure("investing", "FetchReleases", errors.New("calendar table not found"))
	}

	logger.Debug(ctx, "Calendar scraped", "date", date, "releases", len(releases), "skipped", skipped)
	return releases, nil
}

func (p *InvestingProvider) FetchEarnings(ctx context.Context, date string) ([]types.Release, error) {
	if p.earnings == nil {
		return nil, nil
	}
	return p.earnings.FetchEarnings(ctx, date)
}

// parseRow returns false for rows outside the country set, below the importance
// threshold or without a title.
func (p *InvestingProvider) parseRow(row *goquery.Selection, date string) (types.Release, bool) {
	country := strings.ToLower(attrOr(row, "data-country", func() string {
		title, _ := row.Find("td.flagCur span").Attr("title")
		return title
	}))
	if !p.countries[country] {
		return types.Release{}, false
	}

	importance := row.Find(importanceSelector).Length()
	if importance < p.threshold {
		return types.Release{}, false
	}

	title := attrOr(row, "data-event-name", func() string { return row.Find("td.event").Text() })
	if title == "" {
		return types.Release{}, false
	}

	timeText := cellText(row, "td.time")
	tod, ok := parseEventTime(row.AttrOr("data-event-datetime", ""))
	if !ok {
		tod, _ = types.ParseTimeOfDay(timeText)
	}

	r := types.Macro(date, tod, country, title, importance)
	r.TimeText = timeText
	r.Actual = attrOr(row, "data-event-actual", func() string { return row.Find("td.act").Text() })
	r.Forecast = attrOr(row, "data-event-forecast", func() string { return row.Find("td.fore").Text() })
	r.Previous = attrOr(row, "data-event-previous", func() string { return row.Find("td.prev").Text() })
	return r, true
}

func parseEventTime(raw string) (types.TimeOfDay, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.TimeOfDay{}, false
	}
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return types.At(t.Hour(), t.Minute()), true
		}
	}
	return types.TimeOfDay{}, false
}

func attrOr(row *goquery.Selection, attr string, fallback func() string) string {
	if v, ok := row.Attr(attr); ok && strings.TrimSpace(v) != "" {
		return clean(v)
	}
	return clean(fallback())
}

func cellText(row *goquery.Selection, sel string) string {
	return clean(row.Find(sel).First().Text())
}

// clean trims whitespace and the non-breaking space the site uses for empty cells.
func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
}
