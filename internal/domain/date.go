package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"
)

// DateFormat is the ISO-8601 layout used to read and write calendar dates
const DateFormat = "2006-01-02"

// Date is a calendar day with no time-of-day component.
// The zero value means "not set".
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date (e.g. Feb 30 becomes Mar 1 or 2)
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{t.Year(), t.Month(), t.Day()}
}

// DateOf returns the calendar day of t in t's own location
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// Today returns the current calendar day in UTC
func Today() Date {
	return DateOf(time.Now().UTC())
}

// ParseDate parses a date in DateFormat
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", s, DateFormat, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// IsZero reports whether the date is unset
func (d Date) IsZero() bool { return d == Date{} }

// AddDays returns the date n days later (n may be negative)
func (d Date) AddDays(n int) Date { return NewDate(d.y, d.m, d.d+n) }

// Before reports whether d is strictly before x
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }

// After reports whether d is strictly after x
func (d Date) After(x Date) bool { return d.Compare(x) > 0 }

// Compare returns -1, 0 or +1 like cmp.Compare
func (d Date) Compare(x Date) int { return d.Time().Compare(x.Time()) }

// DaysSince returns the number of calendar days from x to d (negative if d is before x)
func (d Date) DaysSince(x Date) int {
	return int(d.Time().Sub(x.Time()).Hours() / 24)
}

// String formats the date in DateFormat
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateFormat)
}

// MarshalJSON writes the date as an ISO string
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads an ISO date string; an empty string yields the zero Date
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of calendar days
type DateRange struct {
	Start Date
	End   Date
}

// Validate ensures both bounds are set and ordered
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New("date range bounds must be set")
	}
	if r.End.Before(r.Start) {
		return errors.New("date range end must not be before start")
	}
	return nil
}

// Days returns the number of calendar days in the range, bounds included
func (r DateRange) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.End.DaysSince(r.Start) + 1
}

// Contains reports whether d falls inside the range (bounds included)
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Dates iterates every calendar day of the range in ascending order
func (r DateRange) Dates() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}
