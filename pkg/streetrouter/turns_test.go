package streetrouter_test

import (
	"testing"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/geo"
	"github.com/azybler/streetrouter/pkg/streetrouter"
)

func TestCarTurnCostSecondsTable(t *testing.T) {
	cases := []struct {
		class streetrouter.TurnClass
		want  float64
	}{
		{streetrouter.TurnStraight, 0},
		{streetrouter.TurnRight, 10},
		{streetrouter.TurnLeft, 30},
		{streetrouter.TurnUTurn, 90},
	}
	for _, c := range cases {
		if got := streetrouter.CarTurnCostSeconds(c.class); got != c.want {
			t.Errorf("CarTurnCostSeconds(%v) = %f, want %f", c.class, got, c.want)
		}
	}
}

// edgeWithAngles builds a single edge pair in a throwaway EdgeStore heading
// from (fromLat,fromLon) to (toLat,toLon) in fixed-point degrees and
// returns its forward cursor, angles computed from the straight endpoint
// segment (no intermediate geometry).
func edgeWithAngles(t *testing.T, fromLat, fromLon, toLat, toLon int32) edgestore.Cursor {
	t.Helper()
	es := edgestore.New()
	fwd, err := es.AddEdgePair(0, 1, 1000, 1, 2)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	c := es.At(fwd)
	c.CalculateAngles(fromLat, fromLon, toLat, toLon)
	return c
}

func TestClassifyTurnStraightAhead(t *testing.T) {
	// Both edges run due east; arriving on one and departing on the other
	// heading the same direction is straight ahead.
	a := edgeWithAngles(t, geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0.01))
	b := edgeWithAngles(t, geo.ToFixed(0), geo.ToFixed(0.01), geo.ToFixed(0), geo.ToFixed(0.02))
	if class := streetrouter.ClassifyTurn(a, b, true); class != streetrouter.TurnStraight {
		t.Fatalf("two colinear eastward edges classified as %v, want TurnStraight", class)
	}
}

// TestClassifyTurnNinetyDegreeSwing reproduces the spec's worked turn-cost
// example: arriving heading due north (bearing 0 degrees) and departing
// heading due east (bearing 90 degrees) sweeps a pi/2 angle, which the
// [0.15pi, 0.85pi) bucket labels a left turn under drive-on-right, costing
// 30 seconds rather than a right turn's 10.
func TestClassifyTurnNinetyDegreeSwing(t *testing.T) {
	a := edgeWithAngles(t, geo.ToFixed(-0.01), geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0))
	b := edgeWithAngles(t, geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0.01))
	class := streetrouter.ClassifyTurn(a, b, true)
	if class != streetrouter.TurnLeft {
		t.Fatalf("a pi/2 swept angle under drive-on-right classified as %v, want TurnLeft", class)
	}
	if cost := streetrouter.CarTurnCostSeconds(class); cost != 30 {
		t.Fatalf("turn cost = %f, want 30 (spec scenario 2)", cost)
	}
}

func TestClassifyTurnMirrorsForDriveOnLeft(t *testing.T) {
	a := edgeWithAngles(t, geo.ToFixed(-0.01), geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0))
	b := edgeWithAngles(t, geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0.01))
	right := streetrouter.ClassifyTurn(a, b, true)
	left := streetrouter.ClassifyTurn(a, b, false)
	if right == left {
		t.Fatal("flipping DriveOnRight should mirror the left/right classification of an asymmetric turn")
	}
	if right != streetrouter.TurnLeft || left != streetrouter.TurnRight {
		t.Fatalf("got driveOnRight=%v driveOnLeft=%v, want TurnLeft/TurnRight", right, left)
	}
}

func TestClassifyTurnUTurn(t *testing.T) {
	a := edgeWithAngles(t, geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0), geo.ToFixed(0.01))
	// b departs back the way a arrived from: a 180 degree reversal.
	b := edgeWithAngles(t, geo.ToFixed(0), geo.ToFixed(0.01), geo.ToFixed(0), geo.ToFixed(0))
	if class := streetrouter.ClassifyTurn(a, b, true); class != streetrouter.TurnUTurn {
		t.Fatalf("a 180 degree reversal classified as %v, want TurnUTurn", class)
	}
}
