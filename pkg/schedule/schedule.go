// Package schedule picks the update interval for the current time of day.
package schedule

import "time"

// Interval returns dayInterval when dayStart <= hour < dayEnd and
// nightInterval otherwise. Intervals are in minutes.
func Interval(dayStart, dayEnd, dayInterval, nightInterval, hour int) int {
	if hour >= dayStart && hour < dayEnd {
		return dayInterval
	}
	return nightInterval
}

// Policy holds the daytime window in local clock hours.
type Policy struct {
	DayStart int
	DayEnd   int
}

// DefaultPolicy is daytime from 08:00 until 23:00.
var DefaultPolicy = Policy{DayStart: 8, DayEnd: 23}

// IsDay reports whether now falls in the daytime window.
func (p Policy) IsDay(now time.Time) bool {
	h := now.Hour()
	return h >= p.DayStart && h < p.DayEnd
}

// At picks between day and night for the hour of now.
func (p Policy) At(now time.Time, day, night time.Duration) time.Duration {
	if p.IsDay(now) {
		return day
	}
	return night
}
