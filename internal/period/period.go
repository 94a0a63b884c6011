package period

import (
	"fmt"
	"time"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Day is a calendar day key in the form YYYY-MM-DD. Day keys are derived in
// the student's local time zone and compared as plain strings, so the same
// key always means the same local day regardless of server time zone.
type Day string

// DayOf returns the day key for t in the given location.
func DayOf(t time.Time, loc *time.Location) Day {
	return Day(t.In(loc).Format(dayLayout))
}

// ParseDay validates and returns a day key.
func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day(s), nil
}

func (d Day) String() string { return string(d) }

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool { return d == "" }

func (d Day) time() time.Time {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prev returns the preceding day.
func (d Day) Prev() Day {
	return Day(d.time().AddDate(0, 0, -1).Format(dayLayout))
}

// Next returns the following day.
func (d Day) Next() Day {
	return Day(d.time().AddDate(0, 0, 1).Format(dayLayout))
}

// Sub returns the number of whole days from o to d (positive when d is
// later). Both keys are interpreted at UTC midnight so the result is exact.
func (d Day) Sub(o Day) int {
	return int(d.time().Sub(o.time()).Hours() / 24)
}

// DayOfMonth returns the 1-based day number within the month.
func (d Day) DayOfMonth() int {
	return d.time().Day()
}

// Month returns the month the day belongs to.
func (d Day) Month() Month {
	if len(d) < len(monthLayout) {
		return ""
	}
	return Month(d[:len(monthLayout)])
}

// Month is a calendar month key in the form YYYY-MM.
type Month string

// MonthOf returns the month key for t in the given location.
func MonthOf(t time.Time, loc *time.Location) Month {
	return Month(t.In(loc).Format(monthLayout))
}

// ParseMonth validates and returns a month key.
func ParseMonth(s string) (Month, error) {
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month(s), nil
}

func (m Month) String() string { return string(m) }

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool { return m == "" }

func (m Month) time() time.Time {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return Month(m.time().AddDate(0, -1, 0).Format(monthLayout))
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.time().AddDate(0, 1, -1).Day()
}

// First returns the first day of the month.
func (m Month) First() Day {
	return Day(m.time().Format(dayLayout))
}

// NextFirst returns the first day of the following month, for half-open
// day-range queries.
func (m Month) NextFirst() Day {
	return Day(m.time().AddDate(0, 1, 0).Format(dayLayout))
}
