package core

import "time"

// WeekOfYear returns the ISO 8601 week number, in [1,53].
func WeekOfYear(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// HourOfDay returns the clock hour, in [0,23].
func HourOfDay(t time.Time) int {
	return t.Hour()
}

// EvenHours returns the twelve even hour buckets 0,2,...,22 matching a
// 2-hour recorder duty cycle.
func EvenHours() []int {
	hours := make([]int, 0, 12)
	for h := 0; h < 24; h += 2 {
		hours = append(hours, h)
	}
	return hours
}

// AllHours returns all 24 hour buckets.
func AllHours() []int {
	hours := make([]int, 24)
	for h := range hours {
		hours[h] = h
	}
	return hours
}
