package common

import "math"

// RoundHalfUp rounds v to the given number of decimal places with ties going
// up (2.345 -> 2.35, -1.255 -> -1.25).
//
// The scaled value is snapped to 9 decimal places first so that binary noise
// such as 100.49999999999999 is treated as the tie it was meant to be.
func RoundHalfUp(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow(10, float64(places))
	scaled := v * scale
	scaled = math.Round(scaled*1e9) / 1e9
	return math.Floor(scaled+0.5) / scale
}

// RoundHalfUpInt rounds v to the nearest integer, halves going up.
func RoundHalfUpInt(v float64) int {
	return int(RoundHalfUp(v, 0))
}
