package graph

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

const (
	maxMarkers    = 30
	markerSamples = 20
)

var negligible = decimal.New(1, -7)

// Marker is a labelled point displayed on top of a graph line
type Marker struct {
	Date  domain.Date
	Value decimal.Decimal
	Label string
}

// Markers returns the labelled points of a graph series. Long series are
// sampled down to about 20 points. Split graphs have no markers since every
// line ends at 100%.
func Markers(series *domain.Series, mode Mode, currencyCode string) []Marker {
	if mode == ModeSplit || series.IsEmpty() {
		return nil
	}

	step := 1
	if series.Len() > maxMarkers {
		step = series.Len() / markerSamples
	}

	var markers []Marker
	i := 0
	for on, v := range series.All() {
		if i%step == 0 {
			markers = append(markers, Marker{Date: on, Value: v, Label: label(v, mode, currencyCode)})
		}
		i++
	}
	return markers
}

func label(v decimal.Decimal, mode Mode, currencyCode string) string {
	if mode != ModeValue {
		return FormatPercent(v)
	}
	return FormatAmount(v, currencyCode)
}

// FormatAmount formats a monetary amount for display. Negligible amounts are
// shown as "-"; amounts in a known currency use its symbol and minor units.
func FormatAmount(v decimal.Decimal, currencyCode string) string {
	if v.Abs().LessThanOrEqual(negligible) {
		return "-"
	}
	cur := money.GetCurrency(currencyCode)
	if cur == nil {
		return v.StringFixed(5)
	}
	minor := v.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// FormatPercent formats a ratio as a percentage with one decimal
func FormatPercent(ratio decimal.Decimal) string {
	return fmt.Sprintf("%s%%", ratio.Shift(2).StringFixed(1))
}
