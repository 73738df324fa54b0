package geo

import "math"

// Envelope is an axis-aligned bounding box in fixed-point degrees.
type Envelope struct {
	MinLat, MinLon int32
	MaxLat, MaxLon int32
}

// EnvelopeFromPoint returns a zero-area envelope at the given fixed-point point.
func EnvelopeFromPoint(fixedLat, fixedLon int32) Envelope {
	return Envelope{MinLat: fixedLat, MaxLat: fixedLat, MinLon: fixedLon, MaxLon: fixedLon}
}

// ExpandToInclude grows e so it contains the given point.
func (e Envelope) ExpandToInclude(fixedLat, fixedLon int32) Envelope {
	if fixedLat < e.MinLat {
		e.MinLat = fixedLat
	}
	if fixedLat > e.MaxLat {
		e.MaxLat = fixedLat
	}
	if fixedLon < e.MinLon {
		e.MinLon = fixedLon
	}
	if fixedLon > e.MaxLon {
		e.MaxLon = fixedLon
	}
	return e
}

// Union returns the smallest envelope containing both e and o.
func (e Envelope) Union(o Envelope) Envelope {
	e = e.ExpandToInclude(o.MinLat, o.MinLon)
	e = e.ExpandToInclude(o.MaxLat, o.MaxLon)
	return e
}

// Contains reports whether the fixed-point point lies within e.
func (e Envelope) Contains(fixedLat, fixedLon int32) bool {
	return fixedLat >= e.MinLat && fixedLat <= e.MaxLat && fixedLon >= e.MinLon && fixedLon <= e.MaxLon
}

// BufferMeters grows e by approximately meters in every direction. Latitude
// degrees are uniform; longitude degrees are scaled by the cosine of the
// envelope's mid-latitude so the buffer stays roughly isotropic in meters.
func (e Envelope) BufferMeters(meters float64) Envelope {
	if meters <= 0 {
		return e
	}
	midLat := ToFloat((e.MinLat + e.MaxLat) / 2)
	latDeg := metersToLatDegrees(meters)
	lonDeg := metersToLonDegrees(meters, midLat)

	latFixed := ToFixed(latDeg)
	lonFixed := ToFixed(lonDeg)

	return Envelope{
		MinLat: e.MinLat - latFixed,
		MaxLat: e.MaxLat + latFixed,
		MinLon: e.MinLon - lonFixed,
		MaxLon: e.MaxLon + lonFixed,
	}
}

func metersToLatDegrees(meters float64) float64 {
	return meters / metersPerDegreeLat
}

func metersToLonDegrees(meters, atLatDegrees float64) float64 {
	cosLat := math.Cos(atLatDegrees * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}
	return meters / (metersPerDegreeLat * cosLat)
}

const (
	metersPerDegreeLat = earthRadiusMeters * math.Pi / 180
	minCosLat          = 0.01 // guards against division blowup near the poles
)
