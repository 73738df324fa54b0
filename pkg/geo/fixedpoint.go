package geo

import "math"

// FixedPrecision is the scale factor between floating-point degrees and the
// fixed-point representation stored in the column stores: degrees * 1e7.
const FixedPrecision = 1e7

// ToFixed converts a floating-point degree value to its fixed-point int32
// representation (degrees * 1e7).
func ToFixed(degrees float64) int32 {
	return int32(math.Round(degrees * FixedPrecision))
}

// ToFloat converts a fixed-point degree value back to floating point.
func ToFloat(fixed int32) float64 {
	return float64(fixed) / FixedPrecision
}
