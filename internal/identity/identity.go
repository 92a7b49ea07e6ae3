// Package identity derives the deduplication keys of releases.
package identity

import "econ-calendar-bot/internal/types"

// Of returns the identity of r for the given notification category.
//
// Announcement and update share the release tuple: (title, date, country) for macro
// releases, (date, ticker) for earnings. Reminders use ("reminder", time, title).
// Only provider-stable fields take part, so a release keeps its identity while its
// actual value moves from empty to published.
func Of(r types.Release, category types.Category) types.Identity {
	if category == types.CategoryReminder {
		return types.Identity{string(types.CategoryReminder), r.Time.String(), r.Title}
	}
	if r.Kind == types.KindEarnings {
		return types.Identity{r.Date, r.Ticker}
	}
	return types.Identity{r.Title, r.Date, r.Country}
}

// Bucket names the persisted record that holds identities of one kind and category.
func Bucket(kind types.Kind, category types.Category) string {
	if kind == types.KindEarnings {
		return string(types.KindEarnings) + "_" + string(category)
	}
	return string(category)
}

// Buckets lists every persisted record the store manages.
func Buckets() []string {
	return []string{
		Bucket(types.KindMacro, types.CategoryAnnouncement),
		Bucket(types.KindMacro, types.CategoryUpdate),
		Bucket(types.KindMacro, types.CategoryReminder),
		Bucket(types.KindEarnings, types.CategoryAnnouncement),
		Bucket(types.KindEarnings, types.CategoryUpdate),
	}
}
