package domain

import (
	"iter"
	"slices"

	"github.com/shopspring/decimal"
)

// Series is a date -> value mapping kept in chronological order.
// It backs both raw value series (cached account/instrument values) and graph series.
type Series struct {
	dates  []Date
	values map[Date]decimal.Decimal
}

// NewSeries creates an empty series
func NewSeries() *Series {
	return &Series{values: make(map[Date]decimal.Decimal)}
}

// SeriesOf builds a series from a map
func SeriesOf(values map[Date]decimal.Decimal) *Series {
	s := NewSeries()
	for on, v := range values {
		s.Set(on, v)
	}
	return s
}

// Len returns the number of dates in the series
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.dates)
}

// IsEmpty reports whether the series holds no value
func (s *Series) IsEmpty() bool { return s.Len() == 0 }

// Set stores v at date on, replacing any existing value
func (s *Series) Set(on Date, v decimal.Decimal) {
	if _, exists := s.values[on]; !exists {
		i, _ := slices.BinarySearchFunc(s.dates, on, Date.Compare)
		s.dates = slices.Insert(s.dates, i, on)
	}
	s.values[on] = v
}

// Get returns the value at exactly that date
func (s *Series) Get(on Date) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	v, ok := s.values[on]
	return v, ok
}

// Has reports whether the series has a value at that date
func (s *Series) Has(on Date) bool {
	_, ok := s.Get(on)
	return ok
}

// First returns the earliest date of the series
func (s *Series) First() (Date, bool) {
	if s.Len() == 0 {
		return Date{}, false
	}
	return s.dates[0], true
}

// Last returns the latest date of the series
func (s *Series) Last() (Date, bool) {
	if s.Len() == 0 {
		return Date{}, false
	}
	return s.dates[len(s.dates)-1], true
}

// ValueAsOf returns the value at the latest date <= on.
// It returns false if the series has no date on or before on.
func (s *Series) ValueAsOf(on Date) (Date, decimal.Decimal, bool) {
	if s.Len() == 0 {
		return Date{}, decimal.Zero, false
	}
	i, found := slices.BinarySearchFunc(s.dates, on, Date.Compare)
	if found {
		return on, s.values[on], true
	}
	if i == 0 {
		return Date{}, decimal.Zero, false
	}
	day := s.dates[i-1]
	return day, s.values[day], true
}

// Dates returns a copy of the dates, in chronological order
func (s *Series) Dates() []Date {
	if s == nil {
		return nil
	}
	return slices.Clone(s.dates)
}

// All iterates over the date/value pairs in chronological order
func (s *Series) All() iter.Seq2[Date, decimal.Decimal] {
	return func(yield func(Date, decimal.Decimal) bool) {
		if s == nil {
			return
		}
		for _, on := range s.dates {
			if !yield(on, s.values[on]) {
				return
			}
		}
	}
}

// Window returns a new series restricted to [from, to]
func (s *Series) Window(from, to Date) *Series {
	out := NewSeries()
	for on, v := range s.All() {
		if on.Before(from) {
			continue
		}
		if on.After(to) {
			break
		}
		out.dates = append(out.dates, on)
		out.values[on] = v
	}
	return out
}

// Clone returns an independent copy of the series
func (s *Series) Clone() *Series {
	out := NewSeries()
	if s == nil {
		return out
	}
	out.dates = slices.Clone(s.dates)
	for on, v := range s.values {
		out.values[on] = v
	}
	return out
}

// Merge returns a new series holding the values of s extended with the values of other.
// Dates already present in s keep their value: a merge never overwrites.
func (s *Series) Merge(other *Series) *Series {
	out := s.Clone()
	for on, v := range other.All() {
		if _, exists := out.values[on]; !exists {
			out.Set(on, v)
		}
	}
	return out
}

// Map returns a new series with f applied to every value
func (s *Series) Map(f func(Date, decimal.Decimal) decimal.Decimal) *Series {
	out := NewSeries()
	for on, v := range s.All() {
		out.dates = append(out.dates, on)
		out.values[on] = f(on, v)
	}
	return out
}

// Values returns the series as a plain map
func (s *Series) Values() map[Date]decimal.Decimal {
	out := make(map[Date]decimal.Decimal, s.Len())
	for on, v := range s.All() {
		out[on] = v
	}
	return out
}
