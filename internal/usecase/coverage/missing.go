// Package coverage finds which parts of a requested date window are not yet
// covered by a cached value series.
package coverage

import (
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// MissingRanges returns the sub-ranges of [start, end] absent from cache.
//
// Nothing before floor is ever requested (floor may be nil). At most two gaps
// are returned: one before the first cached date and one after the last.
// Dates in between are considered known.
func MissingRanges(cache *domain.Series, start, end domain.Date, floor *domain.Date) []domain.DateRange {
	effectiveStart := start
	if floor != nil {
		effectiveStart = domain.Latest(start, *floor)
	}
	if effectiveStart.After(end) {
		return nil
	}

	lo, ok := cache.First()
	if !ok {
		return []domain.DateRange{{From: effectiveStart, To: end}}
	}
	hi, _ := cache.Last()

	var ranges []domain.DateRange
	if lo.After(effectiveStart) {
		ranges = append(ranges, domain.DateRange{From: effectiveStart, To: domain.Earliest(lo, end)})
	}
	if hi.Before(end) {
		ranges = append(ranges, domain.DateRange{From: domain.Latest(hi, start), To: end})
	}
	return ranges
}

// Contiguous extends ranges so that, once computed, the cache holds no hole:
// a gap starting after the last cached date is pulled back to that date, and a
// gap ending before the first cached date is stretched up to it.
func Contiguous(cache *domain.Series, ranges []domain.DateRange) []domain.DateRange {
	lo, ok := cache.First()
	if !ok {
		return ranges
	}
	hi, _ := cache.Last()
	out := make([]domain.DateRange, len(ranges))
	for i, r := range ranges {
		if r.From.After(hi) {
			r.From = hi
		}
		if r.To.Before(lo) {
			r.To = lo
		}
		out[i] = r
	}
	return out
}
