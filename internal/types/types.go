package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tags the two release variants that share the identity/category contract.
type Kind string

const (
	KindMacro    Kind = "macro"
	KindEarnings Kind = "earnings"
)

// Category is an independent notification lifecycle of one release.
type Category string

const (
	CategoryAnnouncement Category = "announcement"
	CategoryUpdate       Category = "update"
	CategoryReminder     Category = "reminder"
)

// DateLayout is the canonical calendar date format carried in identities.
const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock publication time. The zero value is Unknown.
type TimeOfDay struct {
	Hour   int
	Minute int
	known  bool
}

// At builds a known time of day.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute, known: true}
}

// Known reports whether the time was supplied or inferred.
func (t TimeOfDay) Known() bool { return t.known }

// String renders HH:MM, or "" when unknown.
func (t TimeOfDay) String() string {
	if !t.known {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On places the time of day on the given date in loc.
func (t TimeOfDay) On(date string, loc *time.Location) (time.Time, bool) {
	if !t.known {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, loc), true
}

// Before orders times ascending with Unknown last.
func (t TimeOfDay) Before(o TimeOfDay) bool {
	switch {
	case !t.known:
		return false
	case !o.known:
		return true
	case t.Hour != o.Hour:
		return t.Hour < o.Hour
	default:
		return t.Minute < o.Minute
	}
}

var unknownTimeMarkers = map[string]bool{
	"":          true,
	"-":         true,
	"n/a":       true,
	"unbekannt": true,
	"unknown":   true,
	"tentative": true,
	"all day":   true,
}

// ParseTimeOfDay accepts "14:30", "14.30", "8:05 Uhr" and similar; anything else is Unknown.
func ParseTimeOfDay(raw string) (TimeOfDay, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSuffix(s, "uhr")
	s = strings.TrimSpace(strings.Trim(s, "„“\"'"))
	if unknownTimeMarkers[s] {
		return TimeOfDay{}, false
	}
	sep := strings.IndexAny(s, ":.")
	if sep <= 0 || sep+3 > len(s) {
		return TimeOfDay{}, false
	}
	h, err := strconv.Atoi(s[:sep])
	if err != nil {
		return TimeOfDay{}, false
	}
	m, err := strconv.Atoi(s[sep+1 : sep+3])
	if err != nil {
		return TimeOfDay{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, false
	}
	return At(h, m), true
}

// Release is one row returned by the data provider for one poll cycle.
// Identity fields (Date, Country, Title, Ticker) are never rewritten after fetch;
// Time, Forecast, Previous and Actual are the mutable ones.
type Release struct {
	Kind       Kind
	Date       string // DateLayout
	Time       TimeOfDay
	TimeText   string // raw provider hint used for inference when Time is Unknown
	Country    string // lower-cased by the provider
	Title      string
	Importance int // 1..3, macro only

	Forecast string
	Previous string
	Actual   string

	Ticker          string
	Company         string
	EPSActual       string
	EPSEstimate     string
	RevenueActual   string
	RevenueEstimate string
}

// Macro builds a macro release.
func Macro(date string, tod TimeOfDay, country, title string, importance int) Release {
	return Release{Kind: KindMacro, Date: date, Time: tod, Country: country, Title: title, Importance: importance}
}

// Earnings builds an earnings release.
func Earnings(date string, tod TimeOfDay, ticker, company string) Release {
	return Release{Kind: KindEarnings, Date: date, Time: tod, Ticker: ticker, Company: company, Title: company}
}

// HasActual reports whether the published value has appeared.
func (r Release) HasActual() bool {
	if r.Kind == KindEarnings {
		return strings.TrimSpace(r.EPSActual) != ""
	}
	return strings.TrimSpace(r.Actual) != ""
}

// DisplayName is the headline used in messages.
func (r Release) DisplayName() string {
	if r.Kind == KindEarnings {
		if r.Company == "" {
			return r.Ticker
		}
		return fmt.Sprintf("%s (%s)", r.Company, r.Ticker)
	}
	return r.Title
}

// Identity is the deduplication key: an ordered tuple compared by exact string equality.
type Identity []string

const identitySep = "\x1f"

// Key is a map-safe encoding of the tuple.
func (id Identity) Key() string {
	return strings.Join(id, identitySep)
}

// Equal compares tuples element-wise.
func (id Identity) Equal(o Identity) bool {
	return id.Key() == o.Key()
}

func (id Identity) String() string {
	return "(" + strings.Join(id, ", ") + ")"
}

// Sentiment is the classifier output label.
type Sentiment string

const (
	Positive Sentiment = "POSITIVE"
	Negative Sentiment = "NEGATIVE"
	Neutral  Sentiment = "NEUTRAL"
	Unknown  Sentiment = "UNKNOWN"
)

// Field is one name/value row of a message.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is the structured payload handed to a notification sink.
type Message struct {
	Title  string        `json:"title"`
	Color  int           `json:"color"`
	Fields []Field       `json:"fields"`
	TTL    time.Duration `json:"ttl,omitempty"`
}
