package geo

import "testing"

func TestFixedRoundTrip(t *testing.T) {
	tests := []float64{0, 1.2830, -1.2830, 103.8513, -179.999999, 90}
	for _, deg := range tests {
		fixed := ToFixed(deg)
		back := ToFloat(fixed)
		diff := back - deg
		if diff < 0 {
			diff = -diff
		}
		if diff > 1e-7 {
			t.Errorf("ToFixed/ToFloat(%f) round trip = %f, diff %g", deg, back, diff)
		}
	}
}

func TestEnvelopeExpandAndContains(t *testing.T) {
	e := EnvelopeFromPoint(ToFixed(1.0), ToFixed(103.0))
	e = e.ExpandToInclude(ToFixed(1.1), ToFixed(103.2))

	if !e.Contains(ToFixed(1.05), ToFixed(103.1)) {
		t.Error("expected envelope to contain midpoint")
	}
	if e.Contains(ToFixed(2.0), ToFixed(103.1)) {
		t.Error("expected envelope to exclude far point")
	}
}

func TestEnvelopeBufferMeters(t *testing.T) {
	e := EnvelopeFromPoint(ToFixed(1.3521), ToFixed(103.8198))
	buffered := e.BufferMeters(300)

	if buffered.MinLat >= e.MinLat || buffered.MaxLat <= e.MaxLat {
		t.Error("buffer should expand the latitude range")
	}
	if buffered.MinLon >= e.MinLon || buffered.MaxLon <= e.MaxLon {
		t.Error("buffer should expand the longitude range")
	}
}

func TestEnvelopeUnion(t *testing.T) {
	a := EnvelopeFromPoint(ToFixed(1.0), ToFixed(103.0))
	b := EnvelopeFromPoint(ToFixed(2.0), ToFixed(104.0))
	u := a.Union(b)

	if !u.Contains(ToFixed(1.0), ToFixed(103.0)) || !u.Contains(ToFixed(2.0), ToFixed(104.0)) {
		t.Error("union must contain both source envelopes")
	}
}
