package utils

import "math"

// SafeDiv divides num by den, returning 0 when den is 0. Consolidation
// ratios are defined as 0 for zero-cost positions, not as an error.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// AbsFloat returns the absolute value of x.
func AbsFloat(x float64) float64 {
	return math.Abs(x)
}

// RoundFloat rounds a float64 to a specified number of decimal places.
func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}
