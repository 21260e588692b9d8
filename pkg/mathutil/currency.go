// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/rent-renewal/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// Max returns the maximum of two float64 values
func Max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// PercentToFactor converts a percentage change into a growth factor, e.g. 5 -> 1.05.
func PercentToFactor(percent float64) float64 {
	return 1 + percent/constants.PercentageMultiplier
}

// ApplyPercentage grows value by the given percentage.
func ApplyPercentage(value, percent float64) float64 {
	return value * PercentToFactor(percent)
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}
