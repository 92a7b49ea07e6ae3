// Package classifier labels published values against their forecast.
package classifier

import (
	"errors"
	"strconv"
	"strings"

	"econ-calendar-bot/internal/types"
)

// Display colors, matching the Discord palette.
const (
	ColorGreen  = 0x2ecc71
	ColorRed    = 0xe74c3c
	ColorOrange = 0xe67e22
	ColorGray   = 0x95a5a6
	ColorBlue   = 0x3498db
)

// Default polarity keyword sets (lower-case substrings of the release title).
var (
	DefaultNegativeGood = []string{"inflation", "arbeitslosen", "vpi", "verbraucherpreisindex", "cpi", "unemployment", "jobless"}
	DefaultPositiveGood = []string{"payroll", "bip", "beschäftigung", "wachstum", "gdp", "growth", "employment", "retail sales"}
)

// ErrUnparseable is returned by ParseValue for non-numeric content.
var ErrUnparseable = errors.New("value is not numeric")

// Result is a sentiment label together with its display color and text.
type Result struct {
	Label Sentiment
	Color int
}

// Sentiment aliases the shared label type.
type Sentiment = types.Sentiment

// Text is the human label shown in message titles.
func (r Result) Text() string {
	switch r.Label {
	case types.Positive:
		return "✅ Positive"
	case types.Negative:
		return "❌ Negative"
	case types.Neutral:
		return "⚖️ Neutral"
	default:
		return "❔ Unclassified"
	}
}

// Classifier holds the keyword heuristics.
type Classifier struct {
	negativeGood []string
	positiveGood []string
}

// New creates a classifier; nil keyword sets fall back to the defaults.
func New(negativeGood, positiveGood []string) *Classifier {
	if negativeGood == nil {
		negativeGood = DefaultNegativeGood
	}
	if positiveGood == nil {
		positiveGood = DefaultPositiveGood
	}
	return &Classifier{
		negativeGood: lowerAll(negativeGood),
		positiveGood: lowerAll(positiveGood),
	}
}

// Classify never fails: unparseable values yield Unknown.
func (c *Classifier) Classify(r types.Release) Result {
	if r.Kind == types.KindEarnings {
		return c.compare(r.EPSActual, r.EPSEstimate, 1)
	}

	title := strings.ToLower(r.Title)
	direction := 0
	switch {
	case containsAny(title, c.negativeGood):
		direction = -1
	case containsAny(title, c.positiveGood):
		direction = 1
	}
	return c.compare(r.Actual, r.Forecast, direction)
}

// compare applies direction (+1 higher is good, -1 lower is good, 0 no polarity).
func (c *Classifier) compare(actualRaw, forecastRaw string, direction int) Result {
	actual, err := ParseValue(actualRaw)
	if err != nil {
		return Result{Label: types.Unknown, Color: ColorGray}
	}
	forecast, err := ParseValue(forecastRaw)
	if err != nil {
		return Result{Label: types.Unknown, Color: ColorGray}
	}

	if actual == forecast || direction == 0 {
		return Result{Label: types.Neutral, Color: ColorOrange}
	}
	if (actual > forecast) == (direction > 0) {
		return Result{Label: types.Positive, Color: ColorGreen}
	}
	return Result{Label: types.Negative, Color: ColorRed}
}

var multipliers = map[byte]float64{
	'k': 1e3,
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
	'T': 1e12,
}

// ParseValue turns provider strings like "6.3%", "190k", "3,75" or "81.2B" into numbers.
func ParseValue(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrUnparseable
	}

	scale := 1.0
	if m, ok := multipliers[s[len(s)-1]]; ok {
		scale = m
		s = strings.TrimSpace(s[:len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, "−", "-")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrUnparseable
	}
	return v * scale, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(s)))
	}
	return out
}
