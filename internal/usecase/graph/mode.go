package graph

import (
	"github.com/simaogato/wealthflow-valuation/internal/domain"
)

// Mode is the presentation of a graph
type Mode string

const (
	// ModeValue displays the raw value series
	ModeValue Mode = "value"
	// ModeSplit displays the composition of a single account, stacked to 1
	ModeSplit Mode = "split"
	// ModeBaseline divides every value by the value at the baseline date
	ModeBaseline Mode = "baseline"
	// ModeBaselineNet is ModeBaseline without the effect of deposits, withdrawals and transfers
	ModeBaselineNet Mode = "baseline_net"
)

// ParseMode converts a mode name into a Mode
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case ModeValue, ModeSplit, ModeBaseline, ModeBaselineNet:
		return m, nil
	case "":
		return ModeValue, nil
	}
	return "", &domain.ValidationError{Field: "mode", Value: name, Message: "graph mode is invalid"}
}

// IsBaseline reports whether the mode normalizes values against a baseline date
func (m Mode) IsBaseline() bool { return m == ModeBaseline || m == ModeBaselineNet }

// Bounds are the fixed limits of the value axis. A nil bound is left to the renderer.
type Bounds struct {
	Min *float64
	Max *float64
}

func bound(v float64) *float64 { return &v }

// Bounds returns the axis limits of the mode
func (m Mode) Bounds() Bounds {
	if m == ModeSplit {
		return Bounds{Min: bound(0), Max: bound(1.1)}
	}
	return Bounds{Min: bound(0)}
}
