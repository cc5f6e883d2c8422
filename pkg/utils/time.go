package utils

import "time"

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func TruncateToMinutes(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

func DatesEqual(t1, t2 time.Time) bool {
	return StartOfDay(t1).Equal(StartOfDay(t2))
}

// NowUTC returns the current time in UTC
func NowUTC() time.Time {
	return time.Now().UTC()
}

// DaysBetween returns the number of whole days from "from" to "to".
// Negative when "to" is earlier than "from".
func DaysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// DaysBetweenDates compares calendar days, ignoring the time of day.
func DaysBetweenDates(from, to time.Time) int {
	return DaysBetween(StartOfDay(from), StartOfDay(to))
}

// StartOfDayInTimezone returns the start of day in the specified timezone
func StartOfDayInTimezone(t time.Time, timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return t, err
	}
	tInTz := t.In(loc)
	return time.Date(tInTz.Year(), tInTz.Month(), tInTz.Day(), 0, 0, 0, 0, loc), nil
}
