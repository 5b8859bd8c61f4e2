package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// WeekKeyLayout is the on-disk and wire format of a WeekKey.
const WeekKeyLayout = "2006-01-02"

var ErrInvalidWeek = errors.New("invalid week")

// WeekKey identifies a Monday-to-Sunday week by its Monday, as YYYY-MM-DD.
// Keys sort chronologically as plain strings.
type WeekKey string

// WeekKeyOf returns the key of the week containing the calendar date of t.
// Only the year/month/day in t's own location are used.
func WeekKeyOf(t time.Time) WeekKey {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	// time.Weekday has Sunday = 0; shift so Monday = 0 ... Sunday = 6.
	offset := (int(day.Weekday()) + 6) % 7
	return WeekKey(day.AddDate(0, 0, -offset).Format(WeekKeyLayout))
}

// ParseWeekKey accepts any YYYY-MM-DD date and returns the key of its week.
func ParseWeekKey(s string) (WeekKey, error) {
	t, err := time.Parse(WeekKeyLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidWeek, s, err)
	}
	return WeekKeyOf(t), nil
}

// Date returns the Monday of the week at midnight UTC. It returns the zero
// time if the key is malformed.
func (k WeekKey) Date() time.Time {
	t, err := time.Parse(WeekKeyLayout, string(k))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (k WeekKey) String() string {
	return string(k)
}
