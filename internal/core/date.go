package core

import (
	"errors"
	"time"
)

// Date is a calendar date pinned to UTC midnight. Time-of-day never
// carries meaning beyond ordering comparisons against a reference instant.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysInMonth returns the length of the month containing d.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year(), d.Time.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfMonth returns the first day of the month containing d.
func (d Date) StartOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// StartOfWeek returns the Monday of the ISO week containing d.
func (d Date) StartOfWeek() Date {
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDays(-offset)
}

// DaysBetween returns the number of whole calendar days from d to other.
// Negative when other precedes d.
func (d Date) DaysBetween(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

// ISO returns the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// ParseISO parses a YYYY-MM-DD date string.
func ParseISO(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, errors.Join(ErrInvalidDate, err)
	}
	return Date{Time: t}, nil
}

// addMonthsClamped advances by whole calendar months, clamping the
// day-of-month to the target month's length (Jan 31 -> Feb 28/29).
func (d Date) addMonthsClamped(months int) Date {
	y, m, day := d.Time.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(firstOfTarget.Year(), firstOfTarget.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(firstOfTarget.Year(), int(firstOfTarget.Month()), day)
}

// StepDate advances a due date by one period of the given frequency.
// Month and year steps use calendar arithmetic with day clamping so that
// month lengths and leap years are respected.
func StepDate(d Date, f Frequency) (Date, error) {
	switch f {
	case Daily:
		return d.AddDays(1), nil
	case Weekly:
		return d.AddDays(7), nil
	case Monthly:
		return d.addMonthsClamped(1), nil
	case Yearly:
		return d.addMonthsClamped(12), nil
	default:
		return Date{}, ErrUnknownFrequency
	}
}
