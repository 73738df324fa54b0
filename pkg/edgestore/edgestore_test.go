package edgestore_test

import (
	"testing"

	"github.com/azybler/streetrouter/pkg/edgestore"
)

func TestAddEdgePairAssignsForwardBackwardPair(t *testing.T) {
	es := edgestore.New()
	fwd, err := es.AddEdgePair(0, 1, 5000, 0, 2)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	if fwd != 0 {
		t.Fatalf("first forward edge = %d, want 0", fwd)
	}
	bwd := fwd + 1
	if edgestore.PairIndex(fwd) != edgestore.PairIndex(bwd) {
		t.Fatal("forward/backward edges must share a pair index")
	}
	if edgestore.IsBackward(fwd) {
		t.Fatal("forward edge reported as backward")
	}
	if !edgestore.IsBackward(bwd) {
		t.Fatal("backward edge reported as forward")
	}
}

func TestAddEdgePairRejectsOutOfRangeVertex(t *testing.T) {
	es := edgestore.New()
	if _, err := es.AddEdgePair(0, 5, 1000, 0, 2); err == nil {
		t.Fatal("expected error for vertex out of range")
	}
	if es.PairCount() != 0 {
		t.Fatal("rejected edge pair must not be appended")
	}
}

func TestForwardBackwardEndpointsAreSwapped(t *testing.T) {
	es := edgestore.New()
	fwd, _ := es.AddEdgePair(0, 1, 5000, 0, 5)
	bwd := fwd + 1

	fc := es.At(fwd)
	bc := es.At(bwd)
	if fc.GetFromVertex() != 0 || fc.GetToVertex() != 1 {
		t.Fatalf("forward endpoints = %d,%d want 0,1", fc.GetFromVertex(), fc.GetToVertex())
	}
	if bc.GetFromVertex() != 1 || bc.GetToVertex() != 0 {
		t.Fatalf("backward endpoints = %d,%d want 1,0", bc.GetFromVertex(), bc.GetToVertex())
	}
}

func TestSpeedAndFlagsArePerDirection(t *testing.T) {
	es := edgestore.New()
	fwd, _ := es.AddEdgePair(0, 1, 5000, 0, 5)
	bwd := fwd + 1

	fc := es.At(fwd)
	fc.SetSpeed(10)
	fc.SetFlag(edgestore.FlagAllowCar)

	bc := es.At(bwd)
	if bc.GetSpeedMetersPerSecond() != 0 {
		t.Fatal("setting forward speed must not affect backward")
	}
	if bc.HasFlag(edgestore.FlagAllowCar) {
		t.Fatal("setting forward flag must not affect backward")
	}
	if got := fc.GetSpeedMetersPerSecond(); got < 9.99 || got > 10.01 {
		t.Errorf("forward speed = %f, want ~10", got)
	}
}

func TestLTSIsMutuallyExclusive(t *testing.T) {
	es := edgestore.New()
	fwd, _ := es.AddEdgePair(0, 1, 1000, 0, 5)
	c := es.At(fwd)

	c.SetLTS(2, true)
	if c.LTS() != 2 {
		t.Fatalf("LTS = %d, want 2", c.LTS())
	}
	c.SetLTS(4, false)
	if c.LTS() != 4 {
		t.Fatalf("LTS = %d after re-set, want 4", c.LTS())
	}
}

func TestGeometryReversesForBackwardDirection(t *testing.T) {
	es := edgestore.New()
	fwd, _ := es.AddEdgePair(0, 1, 3000, 0, 5)
	bwd := fwd + 1

	fc := es.At(fwd)
	fc.SetGeometry([]int32{10, 20, 30, 40})

	fwdGeom := fc.GetGeometry()
	want := []int32{10, 20, 30, 40}
	for i := range want {
		if fwdGeom[i] != want[i] {
			t.Fatalf("forward geometry = %v, want %v", fwdGeom, want)
		}
	}

	bc := es.At(bwd)
	bwdGeom := bc.GetGeometry()
	wantRev := []int32{30, 40, 10, 20}
	for i := range wantRev {
		if bwdGeom[i] != wantRev[i] {
			t.Fatalf("backward geometry = %v, want %v", bwdGeom, wantRev)
		}
	}
}

func TestNewEdgesHaveEmptyGeometry(t *testing.T) {
	es := edgestore.New()
	a, _ := es.AddEdgePair(0, 1, 1000, 0, 5)
	b, _ := es.AddEdgePair(1, 2, 1000, 0, 5)
	if len(es.At(a).GetGeometry()) != 0 || len(es.At(b).GetGeometry()) != 0 {
		t.Fatal("new edges should have empty geometry")
	}
}

func TestReverseCursorIsOtherDirection(t *testing.T) {
	es := edgestore.New()
	fwd, _ := es.AddEdgePair(0, 1, 1000, 0, 5)
	c := es.At(fwd)
	if c.Reverse().Edge() != fwd+1 {
		t.Fatalf("Reverse().Edge() = %d, want %d", c.Reverse().Edge(), fwd+1)
	}
	if c.Reverse().Reverse().Edge() != fwd {
		t.Fatal("Reverse should be its own inverse")
	}
}

func TestCostFieldDefaultsToZero(t *testing.T) {
	es := edgestore.New()
	fwd, _ := es.AddEdgePair(0, 1, 1000, 0, 5)
	es.RegisterCostField("stress")
	c := es.At(fwd)
	if c.GetCostField("stress") != 0 {
		t.Fatal("unset cost field should default to 0")
	}
	c.SetCostField("stress", 2.5)
	if got := c.GetCostField("stress"); got != 2.5 {
		t.Fatalf("GetCostField = %f, want 2.5", got)
	}
	if es.At(fwd+1).GetCostField("stress") != 0 {
		t.Fatal("setting one direction's cost field must not affect the other")
	}
}

func TestExtendPreservesRestrictionsAndIsolatesNew(t *testing.T) {
	es := edgestore.New()
	e0, _ := es.AddEdgePair(0, 1, 1000, 0, 5)
	e1, _ := es.AddEdgePair(1, 2, 1000, 0, 5)
	es.AddTurnRestriction(edgestore.TurnRestriction{FromEdge: e0, ToEdge: e1, Only: false})
	es.Freeze()

	scenario := es.Extend()
	scenario.AddTurnRestriction(edgestore.TurnRestriction{FromEdge: e1, ToEdge: e0, Only: true})

	if len(es.Restrictions()) != 1 {
		t.Fatalf("base restrictions = %d, want 1 (scenario must not leak back)", len(es.Restrictions()))
	}
	if len(scenario.Restrictions()) != 2 {
		t.Fatalf("scenario restrictions = %d, want 2", len(scenario.Restrictions()))
	}
}

func TestReverseRestrictionRoundTrips(t *testing.T) {
	r := edgestore.TurnRestriction{FromEdge: 4, ToEdge: 10, ViaEdges: []int32{6, 8}, Only: true}
	rt := r.Reverse().Reverse()
	if rt.FromEdge != r.FromEdge || rt.ToEdge != r.ToEdge || rt.Only != r.Only {
		t.Fatalf("Reverse().Reverse() = %+v, want %+v", rt, r)
	}
	if len(rt.ViaEdges) != len(r.ViaEdges) {
		t.Fatalf("via edges length changed: %v vs %v", rt.ViaEdges, r.ViaEdges)
	}
	for i := range r.ViaEdges {
		if rt.ViaEdges[i] != r.ViaEdges[i] {
			t.Fatalf("ViaEdges = %v, want %v", rt.ViaEdges, r.ViaEdges)
		}
	}
}

func TestRestrictionsFromIndexesByFromEdge(t *testing.T) {
	es := edgestore.New()
	e0, _ := es.AddEdgePair(0, 1, 1000, 0, 5)
	e1, _ := es.AddEdgePair(1, 2, 1000, 0, 5)
	e2, _ := es.AddEdgePair(2, 3, 1000, 0, 5)
	es.AddTurnRestriction(edgestore.TurnRestriction{FromEdge: e0, ToEdge: e1})
	es.AddTurnRestriction(edgestore.TurnRestriction{FromEdge: e0, ToEdge: e2})

	idxs := es.RestrictionsFrom(e0)
	if len(idxs) != 2 {
		t.Fatalf("RestrictionsFrom(e0) = %v, want 2 entries", idxs)
	}
	if len(es.RestrictionsFrom(e1)) != 0 {
		t.Fatal("RestrictionsFrom(e1) should be empty")
	}
}
