package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"econ-calendar-bot/internal/classifier"
	"econ-calendar-bot/internal/types"
)

var flags = map[string]string{
	"germany":        "🇩🇪",
	"united states":  "🇺🇸",
	"euro zone":      "🇪🇺",
	"united kingdom": "🇬🇧",
}

// Flag returns the emoji flag for a lower-cased country, or a globe.
func Flag(country string) string {
	if f, ok := flags[strings.ToLower(country)]; ok {
		return f
	}
	return "🌍"
}

// Formatter turns releases into sink messages.
type Formatter struct {
	highImportance int
	reminderTTL    time.Duration
}

func NewFormatter(highImportance int, reminderTTL time.Duration) *Formatter {
	return &Formatter{highImportance: highImportance, reminderTTL: reminderTTL}
}

// SortByTime orders releases by time with Unknown last; ties keep provider order.
func SortByTime(rs []types.Release) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Time.Before(rs[j].Time) })
}

// Announcements lists the new releases of one calendar date in a single message.
func (f *Formatter) Announcements(date string, rs []types.Release) types.Message {
	sorted := append([]types.Release(nil), rs...)
	SortByTime(sorted)

	msg := types.Message{
		Title: "📅 Neue Termine " + displayDate(date),
		Color: classifier.ColorBlue,
	}
	for _, r := range sorted {
		msg.Fields = append(msg.Fields, f.previewField(r))
	}
	return msg
}

func (f *Formatter) Update(r types.Release, res classifier.Result) types.Message {
	msg := types.Message{
		Title: "📊 " + headline(r),
		Color: res.Color,
	}
	if r.Kind == types.KindEarnings {
		msg.Fields = append(msg.Fields,
			field("EPS Ist", r.EPSActual, true),
			field("EPS Erwartung", r.EPSEstimate, true),
		)
		if r.RevenueActual != "" || r.RevenueEstimate != "" {
			msg.Fields = append(msg.Fields,
				field("Umsatz Ist", r.RevenueActual, true),
				field("Umsatz Erwartung", r.RevenueEstimate, true),
			)
		}
	} else {
		msg.Fields = append(msg.Fields,
			field("Ist", r.Actual, true),
			field("Prognose", r.Forecast, true),
			field("Vorher", r.Previous, true),
		)
	}
	msg.Fields = append(msg.Fields, field("Bewertung", res.Text(), false))
	return msg
}

// Reminder announces a release that is lead away; the sink removes it after the TTL.
func (f *Formatter) Reminder(r types.Release, lead time.Duration) types.Message {
	minutes := int((lead + 30*time.Second) / time.Minute)
	return types.Message{
		Title: fmt.Sprintf("⏰ In %d Minuten: %s", minutes, headline(r)),
		Color: classifier.ColorOrange,
		Fields: []types.Field{
			field("Uhrzeit", r.Time.String()+" Uhr", true),
			field("Prognose", r.Forecast, true),
			field("Vorher", r.Previous, true),
		},
		TTL: f.reminderTTL,
	}
}

// Digest previews the given day without any actual-value analysis.
func (f *Formatter) Digest(date string, rs []types.Release) types.Message {
	sorted := append([]types.Release(nil), rs...)
	SortByTime(sorted)

	msg := types.Message{
		Title: "🗓️ Termine für " + displayDate(date),
		Color: classifier.ColorBlue,
	}
	if len(sorted) == 0 {
		msg.Fields = []types.Field{field("Keine relevanten Termine", "Morgen stehen keine wichtigen Veröffentlichungen an.", false)}
		return msg
	}
	for _, r := range sorted {
		msg.Fields = append(msg.Fields, f.previewField(r))
	}
	return msg
}

func (f *Formatter) previewField(r types.Release) types.Field {
	clock := r.Time.String()
	if clock == "" {
		clock = "--:--"
	}
	name := fmt.Sprintf("%s %s %s", clock, marker(r), r.DisplayName())

	var parts []string
	if r.Kind == types.KindEarnings {
		if r.EPSEstimate != "" {
			parts = append(parts, "EPS Erwartung: "+r.EPSEstimate)
		}
	} else {
		parts = append(parts, f.stars(r.Importance))
		if r.Forecast != "" {
			parts = append(parts, "Prognose: "+r.Forecast)
		}
		if r.Previous != "" {
			parts = append(parts, "Vorher: "+r.Previous)
		}
	}
	return field(name, strings.Join(parts, " | "), false)
}

func (f *Formatter) stars(importance int) string {
	s := strings.Repeat("⭐", importance)
	if importance >= f.highImportance {
		s += " 🚨"
	}
	return s
}

func marker(r types.Release) string {
	if r.Kind == types.KindEarnings {
		return "💼"
	}
	return Flag(r.Country)
}

func headline(r types.Release) string {
	return marker(r) + " " + r.DisplayName()
}

// field substitutes "-" for empty values; chat embeds reject blank fields.
func field(name, value string, inline bool) types.Field {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	return types.Field{Name: name, Value: value, Inline: inline}
}

func displayDate(date string) string {
	d, err := time.Parse(types.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("02.01.2006")
}
