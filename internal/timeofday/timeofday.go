// Package timeofday provides arithmetic on wall-clock (hour, minute) pairs
// that are independent of any calendar date.
package timeofday

import (
	"encoding/json"
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// Time is a time of day with minute precision.
type Time struct {
	Hour   int
	Minute int
}

// New returns the time of day h:m without normalizing it.
func New(hour, minute int) Time {
	return Time{Hour: hour, Minute: minute}
}

// FromMinutes converts minutes since midnight to a Time, wrapping past 24h.
func FromMinutes(m int) Time {
	m %= minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return Time{Hour: m / 60, Minute: m % 60}
}

// FromClock returns the time of day of t in t's location.
func FromClock(t time.Time) Time {
	return Time{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns minutes since midnight.
func (t Time) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Add advances t by the given number of minutes, wrapping at midnight.
func (t Time) Add(minutes int) Time {
	return FromMinutes(t.Minutes() + minutes)
}

func (t Time) Before(u Time) bool { return t.Minutes() < u.Minutes() }
func (t Time) After(u Time) bool  { return t.Minutes() > u.Minutes() }
func (t Time) Equal(u Time) bool  { return t.Minutes() == u.Minutes() }

// Later returns whichever of a and b is later in the day.
func Later(a, b Time) Time {
	if b.After(a) {
		return b
	}
	return a
}

// Duration returns the minutes from start to end. An end at or before start
// is read as falling on the following day, so 22:00 -> 06:00 is 480.
func Duration(start, end Time) int {
	d := end.Minutes() - start.Minutes()
	if d <= 0 {
		d += minutesPerDay
	}
	return d
}

// On places t on the calendar day of day, in day's location.
func (t Time) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, day.Location())
}

// Valid reports whether t is a real time of day.
func (t Time) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Parse reads an "HH:MM" string.
func Parse(s string) (Time, error) {
	p, err := time.Parse("15:04", s)
	if err != nil {
		return Time{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return Time{Hour: p.Hour(), Minute: p.Minute()}, nil
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
