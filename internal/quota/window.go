// Package quota resolves a user's effective plan limits and weekly usage.
package quota

import "time"

// WeekWindow returns the half-open usage window [start, end) containing now:
// the most recent Monday 00:00 in loc, plus seven days. Pure; both bounds are
// in loc.
func WeekWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	local := now.In(loc)
	// time.Weekday numbers Sunday 0; shift so Monday is day 0.
	daysSinceMonday := (int(local.Weekday()) + 6) % 7
	y, m, d := local.AddDate(0, 0, -daysSinceMonday).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 7)
}
