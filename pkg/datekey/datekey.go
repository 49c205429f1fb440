// Package datekey provides a timezone-stable calendar day abstraction.
// All streak and daily-counter logic operates on day keys (YYYY-MM-DD strings)
// instead of raw time subtraction, so DST transitions can never produce
// off-by-one days. Key arithmetic is done on a days-since-epoch integer
// anchored to UTC.
// No external dependencies - uses only standard library.
package datekey

import (
	"fmt"
	"regexp"
	"time"
)

// Layout is the canonical day-key format.
const Layout = "2006-01-02"

// Key is a canonical calendar day identifier in YYYY-MM-DD form.
// The zero value "" means "no day recorded".
type Key string

var keyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FromTime returns the day key for t in t's own location.
// Callers pick the location once (usually the user's local zone) and stay with it.
func FromTime(t time.Time) Key {
	return Key(t.Format(Layout))
}

// Today returns the current day key in the given location.
// A nil location falls back to time.Local.
func Today(loc *time.Location) Key {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

// IsZero reports whether the key is unset.
func (k Key) IsZero() bool {
	return k == ""
}

// IsValid reports whether the key parses as a real calendar date.
func (k Key) IsValid() bool {
	if !keyRegex.MatchString(string(k)) {
		return false
	}
	_, err := time.Parse(Layout, string(k))
	return err == nil
}

// String returns the string representation.
func (k Key) String() string {
	return string(k)
}

// Time returns the key's midnight anchored to UTC.
// Used only for key arithmetic, never for display.
func (k Key) Time() (time.Time, error) {
	t, err := time.Parse(Layout, string(k))
	if err != nil {
		return time.Time{}, fmt.Errorf("datekey: parse %q: %w", k, err)
	}
	return t, nil
}

// DayNumber returns the number of days since the Unix epoch for this key.
// Returns -1 for invalid keys.
func (k Key) DayNumber() int {
	t, err := k.Time()
	if err != nil {
		return -1
	}
	return int(t.Unix() / 86400)
}

// AddDays returns the key shifted by n calendar days using UTC math.
// Returns the zero key if k is invalid.
func (k Key) AddDays(n int) Key {
	t, err := k.Time()
	if err != nil {
		return ""
	}
	return FromTime(t.AddDate(0, 0, n).UTC())
}

// Prev returns the previous calendar day.
func (k Key) Prev() Key {
	return k.AddDays(-1)
}

// Next returns the next calendar day.
func (k Key) Next() Key {
	return k.AddDays(1)
}

// DaysSince returns k - other in whole days.
// Both keys must be valid; otherwise 0 is returned.
func (k Key) DaysSince(other Key) int {
	a, b := k.DayNumber(), other.DayNumber()
	if a < 0 || b < 0 {
		return 0
	}
	return a - b
}

// WeekStart returns the Monday of the week containing t, as a key in t's location.
// Sunday is treated as the last day of the week.
func WeekStart(t time.Time) Key {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	return FromTime(monday)
}

// ThisWeekStart returns the Monday key of the current week in the given location.
func ThisWeekStart(loc *time.Location) Key {
	if loc == nil {
		loc = time.Local
	}
	return WeekStart(time.Now().In(loc))
}
