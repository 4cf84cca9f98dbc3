package utils

import "math"

// RoundToDecimalPrecision floors the quantity to the specified decimal precision.
// Flooring (rather than rounding) guarantees the resulting quantity never
// exceeds what the caller can afford or holds.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Floor(quantity*multiplier) / multiplier
}
