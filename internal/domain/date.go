package domain

import (
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 layout used to print and parse dates
const DateFormat = "2006-01-02"

// readDateFormat accepts single-digit months and days ("2024-7-1")
const readDateFormat = "2006-1-2"

// Date is a calendar day with no time of day attached.
// Dates are comparable with == and usable as map keys.
type Date struct {
	y int
	m time.Month
	d int
}

// MinDate is the earliest representable date, used as the "start of the world"
var MinDate = Date{1, time.January, 1}

// NewDate returns a normalized Date (e.g. April 31 becomes May 1)
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.Time().Date()
	return d
}

// DateOf returns the calendar day of t, in t's location
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

// Today returns the current date
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a date in the YYYY-MM-DD format
func ParseDate(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, want format %q: %w", str, DateFormat, err)
	}
	return DateOf(on), nil
}

// MustParseDate is like ParseDate but panics on error
func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// Time returns midnight UTC of that day
func (d Date) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Date) Year() int          { return d.y }
func (d Date) Month() time.Month  { return d.m }
func (d Date) Day() int           { return d.d }
func (d Date) IsZero() bool       { return d == Date{} }
func (d Date) Before(x Date) bool { return d.Compare(x) < 0 }
func (d Date) After(x Date) bool  { return d.Compare(x) > 0 }
func (d Date) Equal(x Date) bool  { return d == x }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x
func (d Date) Compare(x Date) int {
	switch {
	case d.y != x.y:
		return cmpInt(d.y, x.y)
	case d.m != x.m:
		return cmpInt(int(d.m), int(x.m))
	default:
		return cmpInt(d.d, x.d)
	}
}

// AddDays returns the date n days after d (n may be negative)
func (d Date) AddDays(n int) Date { return NewDate(d.y, d.m, d.d+n) }

// StartOfMonth returns the first day of d's month
func (d Date) StartOfMonth() Date { return NewDate(d.y, d.m, 1) }

// String formats the date as YYYY-MM-DD
func (d Date) String() string { return d.Time().Format(DateFormat) }

// Latest returns the latest of the given dates
func Latest(first Date, others ...Date) Date {
	for _, o := range others {
		if o.After(first) {
			first = o
		}
	}
	return first
}

// Earliest returns the earliest of the given dates
func Earliest(first Date, others ...Date) Date {
	for _, o := range others {
		if o.Before(first) {
			first = o
		}
	}
	return first
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// DateRange is a closed interval of dates [From, To]
type DateRange struct {
	From Date
	To   Date
}

// NewDateRange returns the range [from, to] or a validation error if from is after to
func NewDateRange(from, to Date) (DateRange, error) {
	if from.After(to) {
		return DateRange{}, &ValidationError{
			Field:   "start_date",
			Value:   from,
			Message: "start date must be before end date",
		}
	}
	return DateRange{From: from, To: to}, nil
}

// Contains reports whether on is inside the range, boundaries included
func (r DateRange) Contains(on Date) bool { return !on.Before(r.From) && !on.After(r.To) }

// Equal reports whether both ranges have the same boundaries
func (r DateRange) Equal(o DateRange) bool { return r.From == o.From && r.To == o.To }

func (r DateRange) String() string { return fmt.Sprintf("[%s, %s]", r.From, r.To) }
