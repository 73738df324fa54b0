package geo

import "math"

// Brad is a compass bearing packed into a signed 8-bit "binary radian":
// 256 units cover a full turn, clockwise from north, wrapping at +/-128 the
// same way a two's-complement byte wraps. Two brads the same turn apart by
// 256 units are identical, which is what lets opposite-direction edges store
// their angles symmetrically (mod 256) without a sign convention split.
type Brad int8

// BradFromBearing converts a clockwise-from-north bearing in radians
// (conventionally in [0, 2*pi)) to the nearest Brad.
func BradFromBearing(radians float64) Brad {
	turns := radians / (2 * math.Pi)
	units := math.Round(turns * 256)
	return Brad(int32(units) & 0xff)
}

// Radians returns the bearing in [0, 2*pi) clockwise from north.
func (b Brad) Radians() float64 {
	units := int32(uint8(b))
	return float64(units) / 256 * 2 * math.Pi
}

// Bearing computes the initial great-circle bearing in radians, clockwise
// from north, from point A to point B.
func Bearing(aLat, aLon, bLat, bLon float64) float64 {
	lat1 := aLat * math.Pi / 180
	lat2 := bLat * math.Pi / 180
	dLon := (bLon - aLon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	theta := math.Atan2(y, x)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}

// ClockwiseAngleBetween returns the clockwise angle in [0, 2*pi) needed to
// rotate from bearing `from` to bearing `to`. Used to classify turns: 0 is
// straight ahead, near pi is a u-turn, values below pi are a right turn and
// values above pi are a left turn (drive-on-right convention).
func ClockwiseAngleBetween(from, to Brad) float64 {
	diff := to.Radians() - from.Radians()
	twoPi := 2 * math.Pi
	diff = math.Mod(diff, twoPi)
	if diff < 0 {
		diff += twoPi
	}
	return diff
}
