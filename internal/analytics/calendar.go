package analytics

import "time"

// A listening day starts at 05:00 UTC and runs 21 hours, so late-night
// sessions land in the evening's bucket instead of splitting at midnight.
const (
	listeningDayStartHour = 5
	listeningDaySeconds   = 21 * 3600

	secondsPerHour  = 3600
	secondsPerDay   = 86400
	secondsPerWeek  = 7 * secondsPerDay
	secondsPerMonth = 30 * secondsPerDay
	secondsPerYear  = 365 * secondsPerDay
)

// DayStart returns the start of the listening day containing ts: 05:00 UTC of
// the same calendar day when the hour is >= 5, else 05:00 of the previous day.
func DayStart(ts int64) int64 {
	t := time.Unix(ts, 0).UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), listeningDayStartHour, 0, 0, 0, time.UTC)
	if t.Hour() < listeningDayStartHour {
		start = start.AddDate(0, 0, -1)
	}
	return start.Unix()
}

// windows holds the rolling-window boundaries for one reference instant.
type windows struct {
	now        int64
	hourStart  int64 // exclusive lower bound
	todayStart int64
	weekStart  int64
	monthStart int64
	yearStart  int64
}

func windowsAt(now time.Time) windows {
	ts := now.Unix()
	return windows{
		now:        ts,
		hourStart:  ts - secondsPerHour,
		todayStart: DayStart(ts),
		weekStart:  ts - secondsPerWeek,
		monthStart: ts - secondsPerMonth,
		yearStart:  ts - secondsPerYear,
	}
}

// calendarMonthKey buckets a timestamp by its UTC calendar (year, month).
func calendarMonthKey(ts int64) int {
	t := time.Unix(ts, 0).UTC()
	return t.Year()*100 + int(t.Month())
}

func dayLabel(dayStartTS int64) string {
	return time.Unix(dayStartTS, 0).UTC().Format("Mon, Jan 02")
}
