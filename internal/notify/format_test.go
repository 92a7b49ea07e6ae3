package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"econ-calendar-bot/internal/classifier"
	"econ-calendar-bot/internal/types"
)

func TestSortByTimeUnknownLast(t *testing.T) {
	rs := []types.Release{
		types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "unknown-1", 2),
		types.Macro("2024-05-03", types.At(14, 30), "united states", "late", 3),
		types.Macro("2024-05-03", types.At(8, 0), "germany", "early", 3),
		types.Macro("2024-05-03", types.TimeOfDay{}, "germany", "unknown-2", 2),
	}
	SortByTime(rs)
	var titles []string
	for _, r := range rs {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"early", "late", "unknown-1", "unknown-2"}, titles)
}

func TestAnnouncementsBatch(t *testing.T) {
	f := NewFormatter(3, 10*time.Minute)
	vpi := types.Macro("2024-05-03", types.At(8, 0), "germany", "VPI", 3)
	vpi.Forecast, vpi.Previous = "2.2%", "2.1%"
	nfp := types.Macro("2024-05-03", types.TimeOfDay{}, "united states", "Nonfarm Payrolls", 2)
	aapl := types.Earnings("2024-05-03", types.At(22, 5), "AAPL", "Apple Inc.")
	aapl.EPSEstimate = "1.50"

	msg := f.Announcements("2024-05-03", []types.Release{nfp, aapl, vpi})
	assert.Equal(t, "📅 Neue Termine 03.05.2024", msg.Title)
	assert.Zero(t, msg.TTL)
	require.Len(t, msg.Fields, 3)

	assert.Equal(t, "08:00 🇩🇪 VPI", msg.Fields[0].Name)
	assert.Equal(t, "⭐⭐⭐ 🚨 | Prognose: 2.2% | Vorher: 2.1%", msg.Fields[0].Value)
	assert.Equal(t, "22:05 💼 Apple Inc. (AAPL)", msg.Fields[1].Name)
	assert.Equal(t, "EPS Erwartung: 1.50", msg.Fields[1].Value)
	assert.Equal(t, "--:-- 🇺🇸 Nonfarm Payrolls", msg.Fields[2].Name)
	assert.Equal(t, "⭐⭐", msg.Fields[2].Value)
}

func TestUpdateMessage(t *testing.T) {
	f := NewFormatter(3, 0)
	r := types.Macro("2024-05-03", types.At(8, 0), "germany", "Verbraucherpreisindex", 3)
	r.Actual, r.Forecast = "6.3%", "6.1%"

	msg := f.Update(r, classifier.Result{Label: types.Negative, Color: classifier.ColorRed})
	assert.Equal(t, "📊 🇩🇪 Verbraucherpreisindex", msg.Title)
	assert.Equal(t, classifier.ColorRed, msg.Color)
	require.Len(t, msg.Fields, 4)
	assert.Equal(t, "6.3%", msg.Fields[0].Value)
	assert.Equal(t, "-", msg.Fields[2].Value)
	assert.Equal(t, "❌ Negative", msg.Fields[3].Value)
}

func TestUpdateMessageEarnings(t *testing.T) {
	f := NewFormatter(3, 0)
	r := types.Earnings("2024-05-02", types.At(22, 5), "AAPL", "Apple Inc.")
	r.EPSActual, r.EPSEstimate = "1.53", "1.50"
	r.RevenueActual, r.RevenueEstimate = "90.8B", "90.3B"

	msg := f.Update(r, classifier.Result{Label: types.Positive, Color: classifier.ColorGreen})
	assert.Equal(t, "📊 💼 Apple Inc. (AAPL)", msg.Title)
	names := make([]string, 0, len(msg.Fields))
	for _, fl := range msg.Fields {
		names = append(names, fl.Name)
	}
	assert.Equal(t, []string{"EPS Ist", "EPS Erwartung", "Umsatz Ist", "Umsatz Erwartung", "Bewertung"}, names)
}

func TestReminderCarriesTTL(t *testing.T) {
	f := NewFormatter(3, 10*time.Minute)
	r := types.Macro("2024-05-03", types.At(14, 30), "united states", "Nonfarm Payrolls", 3)

	msg := f.Reminder(r, 300*time.Second)
	assert.Equal(t, "⏰ In 5 Minuten: 🇺🇸 Nonfarm Payrolls", msg.Title)
	assert.Equal(t, 10*time.Minute, msg.TTL)
	assert.Equal(t, "14:30 Uhr", msg.Fields[0].Value)
}

func TestDigest(t *testing.T) {
	f := NewFormatter(3, 0)
	empty := f.Digest("2024-05-04", nil)
	assert.Equal(t, "🗓️ Termine für 04.05.2024", empty.Title)
	require.Len(t, empty.Fields, 1)
	assert.True(t, strings.HasPrefix(empty.Fields[0].Name, "Keine"))

	withActual := types.Macro("2024-05-04", types.At(10, 0), "france", "Something", 2)
	withActual.Actual = "1.0"
	msg := f.Digest("2024-05-04", []types.Release{withActual})
	require.Len(t, msg.Fields, 1)
	assert.Equal(t, "10:00 🌍 Something", msg.Fields[0].Name)
	assert.NotContains(t, msg.Fields[0].Value, "1.0")
}
