package mensa

import "time"

// afternoonCutoff is the local hour from which the next day's menu is
// shown on workdays.
const afternoonCutoff = 16

// ResolveDay maps the current time to the calendar day whose menu should
// be shown: weekends skip ahead to the next Monday, workday afternoons
// (16:00 and later) show the next day.
func ResolveDay(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch now.Weekday() {
	case time.Saturday:
		return day.AddDate(0, 0, 2)
	case time.Sunday:
		return day.AddDate(0, 0, 1)
	}
	if now.Hour() >= afternoonCutoff {
		return day.AddDate(0, 0, 1)
	}
	return day
}
