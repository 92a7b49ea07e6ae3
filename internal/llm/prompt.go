// Package llm holds the shared prompt and answer handling for the time
// inferrers, plus the fallback chain and per-release cache around them.
package llm

import (
	"fmt"
	"regexp"
	"strings"

	"econ-calendar-bot/internal/types"
)

// SystemPrompt frames every time question.
const SystemPrompt = "Du bist ein Assistent für Wirtschaftstermine. Antworte ausschließlich mit einer Uhrzeit im Format HH:MM Uhr (deutsche Zeit) oder mit 'unbekannt'."

// Prompt builds the user question for one release.
func Prompt(r types.Release) string {
	if r.Kind == types.KindEarnings {
		hint := ""
		if r.TimeText != "" {
			hint = fmt.Sprintf(" Hinweis des Kalenders: %q.", r.TimeText)
		}
		return fmt.Sprintf("Um wie viel Uhr deutscher Zeit veröffentlicht %s am %s seine Quartalszahlen?%s", r.DisplayName(), r.Date, hint)
	}
	return fmt.Sprintf("Um wie viel Uhr deutscher Zeit wird '%s' (%s) am %s üblicherweise veröffentlicht?", r.Title, r.Country, r.Date)
}

var clockPattern = regexp.MustCompile(`\b([01]?\d|2[0-3])[:.]([0-5]\d)\b`)

// ParseAnswer extracts the first HH:MM from a model reply; anything else is Unknown.
func ParseAnswer(text string) types.TimeOfDay {
	t := strings.TrimSpace(text)
	if strings.Contains(strings.ToLower(t), "unbekannt") {
		return types.TimeOfDay{}
	}
	m := clockPattern.FindString(t)
	if m == "" {
		return types.TimeOfDay{}
	}
	tod, _ := types.ParseTimeOfDay(m)
	return tod
}
