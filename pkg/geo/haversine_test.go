package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		lat1, lon1       float64
		lat2, lon2       float64
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			// One degree of longitude at the equator is a standard
			// reference distance independent of any particular network.
			name:             "one degree of longitude at the equator",
			lat1:             0, lon1: 0,
			lat2:             0, lon2: 1,
			wantMeters:       111_320,
			tolerancePercent: 1,
		},
		{
			name:             "same point",
			lat1:             0.0009, lon1: 0.0018,
			lat2:             0.0009, lon2: 0.0018,
			wantMeters:       0,
			tolerancePercent: 0,
		},
		{
			// On the sphere Haversine uses, one degree of latitude is as
			// long as one degree of longitude at the equator (about
			// 111,195 m); the 1% tolerance admits this ellipsoidal value.
			name:             "one degree of latitude",
			lat1:             0, lon1: 0,
			lat2:             1, lon2: 0,
			wantMeters:       110_574,
			tolerancePercent: 1,
		},
		{
			// Matches the 100m pair spacing used throughout the router and
			// street-layer test fixtures (0.0009 degrees longitude at the
			// equator).
			name:             "short distance matching the test network's 100m edge spacing",
			lat1:             0, lon1: 0,
			lat2:             0, lon2: 0.0009,
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
		})
	}
}

func TestEquirectangularDist(t *testing.T) {
	// At the scale of a single street edge, equirectangular should track
	// Haversine closely.
	lat1, lon1 := 0.0, 0.0
	lat2, lon2 := 0.0009, 0.0018

	h := Haversine(lat1, lon1, lat2, lon2)
	e := EquirectangularDist(lat1, lon1, lat2, lon2)

	diffPercent := math.Abs(h-e) / h * 100
	if diffPercent > 0.5 {
		t.Errorf("EquirectangularDist differs from Haversine by %.2f%% (haversine=%f, equirect=%f)", diffPercent, h, e)
	}
}

func TestPointToSegmentDist(t *testing.T) {
	tests := []struct {
		name       string
		pLat, pLon float64
		aLat, aLon float64
		bLat, bLon float64
		wantRatio  float64
		maxDistM   float64 // max expected distance
	}{
		{
			name: "point at start of segment",
			pLat: 0, pLon: 0,
			aLat: 0, aLon: 0,
			bLat: 0, bLon: 0.0009,
			wantRatio: 0.0,
			maxDistM:  1,
		},
		{
			name: "point at end of segment",
			pLat: 0, pLon: 0.0009,
			aLat: 0, aLon: 0,
			bLat: 0, bLon: 0.0009,
			wantRatio: 1.0,
			maxDistM:  1,
		},
		{
			name: "point at midpoint perpendicular",
			pLat: 0.0005, pLon: 0.00045,
			aLat: 0, aLon: 0,
			bLat: 0, bLon: 0.0009,
			wantRatio: 0.5,
			maxDistM:  200,
		},
		{
			name: "degenerate segment (A == B)",
			pLat: 0.0001, pLon: 0,
			aLat: 0, aLon: 0,
			bLat: 0, bLon: 0,
			wantRatio: 0.0,
			maxDistM:  200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegmentDist(tt.pLat, tt.pLon, tt.aLat, tt.aLon, tt.bLat, tt.bLon)
			if dist > tt.maxDistM {
				t.Errorf("dist = %f m, want <= %f m", dist, tt.maxDistM)
			}
			if math.Abs(ratio-tt.wantRatio) > 0.05 {
				t.Errorf("ratio = %f, want ~%f", ratio, tt.wantRatio)
			}
		})
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(0, 0, 0.0009, 0.0018)
	}
}

func BenchmarkEquirectangularDist(b *testing.B) {
	for b.Loop() {
		EquirectangularDist(0, 0, 0.0009, 0.0018)
	}
}
