package pointlinkage

import (
	"testing"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/streetlayer"
)

// TestEgressTableReproducesWorkedExample reproduces spec.md §8 scenario 6
// exactly: a stop S connected to vertex V at 50m, and a point P linked to an
// edge whose from-vertex is V with distance0 = 30m, distanceToEdge = 5m; the
// egress distance S->P must equal 50_000 + 30_000 + 5_000 = 85_000mm.
func TestEgressTableReproducesWorkedExample(t *testing.T) {
	sl := streetlayer.New()
	v := sl.Vertices.AddVertex(0, 0)
	other := sl.Vertices.AddVertex(0, 0.0018)
	fwd, err := sl.AddEdgePair(v, other, 200_000, 1)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	for _, e := range []int32{fwd, fwd + 1} {
		c := sl.Edges.At(e)
		c.SetFlag(edgestore.FlagAllowPedestrian)
		c.SetSpeed(1.4)
	}
	sl.BuildIndex()
	if err := sl.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	lk := &Linkage{
		layer:            sl,
		points:           fixedPoints{{0, 0}},
		mode:             edgestore.ModeWalk,
		radius:           1000,
		edge:             []int32{fwd},
		distanceToEdgeMm: []int32{5_000},
		distance0Mm:      []int32{30_000},
		distance1Mm:      []int32{170_000},
	}

	stop := Stop{
		Lat: 0, Lon: 0,
		ToVertexDistanceMm: StopToVertexDistance{v: 50_000},
	}

	entries := lk.egressTableForStop(stop)
	if len(entries) != 1 {
		t.Fatalf("egressTableForStop returned %d entries, want 1", len(entries))
	}
	if entries[0].PointIndex != 0 {
		t.Errorf("PointIndex = %d, want 0", entries[0].PointIndex)
	}
	if entries[0].DistanceMm != 85_000 {
		t.Errorf("DistanceMm = %d, want 85000 (50000+30000+5000)", entries[0].DistanceMm)
	}
}

func TestEgressTableDropsPointWithNeitherEndpointInStopTable(t *testing.T) {
	sl := streetlayer.New()
	v0 := sl.Vertices.AddVertex(0, 0)
	v1 := sl.Vertices.AddVertex(0, 0.0018)
	fwd, err := sl.AddEdgePair(v0, v1, 200_000, 1)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	sl.BuildIndex()
	if err := sl.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	lk := &Linkage{
		layer:            sl,
		points:           fixedPoints{{0, 0}},
		mode:             edgestore.ModeWalk,
		radius:           1000,
		edge:             []int32{fwd},
		distanceToEdgeMm: []int32{5_000},
		distance0Mm:      []int32{30_000},
		distance1Mm:      []int32{170_000},
	}

	stop := Stop{Lat: 0, Lon: 0, ToVertexDistanceMm: StopToVertexDistance{}}
	entries := lk.egressTableForStop(stop)
	if len(entries) != 0 {
		t.Fatalf("egressTableForStop returned %d entries, want 0 when neither endpoint is in the stop's table", len(entries))
	}
}

func TestBuildEgressTablesRunsAcrossStopsInParallel(t *testing.T) {
	sl := streetlayer.New()
	v := sl.Vertices.AddVertex(0, 0)
	other := sl.Vertices.AddVertex(0, 0.0018)
	fwd, err := sl.AddEdgePair(v, other, 200_000, 1)
	if err != nil {
		t.Fatalf("AddEdgePair: %v", err)
	}
	sl.BuildIndex()
	if err := sl.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	lk := &Linkage{
		layer:            sl,
		points:           fixedPoints{{0, 0}},
		mode:             edgestore.ModeWalk,
		radius:           1000,
		edge:             []int32{fwd},
		distanceToEdgeMm: []int32{5_000},
		distance0Mm:      []int32{30_000},
		distance1Mm:      []int32{170_000},
	}

	stops := []Stop{
		{Lat: 0, Lon: 0, ToVertexDistanceMm: StopToVertexDistance{v: 50_000}},
		{Lat: 0, Lon: 0, ToVertexDistanceMm: StopToVertexDistance{v: 10_000}},
	}
	tables := BuildEgressTables(lk, stops)
	if len(tables) != 2 {
		t.Fatalf("BuildEgressTables returned %d tables, want 2", len(tables))
	}
	if tables[0][0].DistanceMm != 85_000 {
		t.Errorf("stop 0 distance = %d, want 85000", tables[0][0].DistanceMm)
	}
	if tables[1][0].DistanceMm != 45_000 {
		t.Errorf("stop 1 distance = %d, want 45000 (10000+30000+5000)", tables[1][0].DistanceMm)
	}
}

func TestCropEgressTableSlicesWithoutRecomputing(t *testing.T) {
	table := []EgressEntry{
		{PointIndex: 2, DistanceMm: 100},
		{PointIndex: 5, DistanceMm: 200},
		{PointIndex: 8, DistanceMm: 300},
	}
	cropped := CropEgressTable(table, 3, 7)
	if len(cropped) != 1 {
		t.Fatalf("CropEgressTable returned %d entries, want 1", len(cropped))
	}
	if cropped[0].PointIndex != 2 || cropped[0].DistanceMm != 200 {
		t.Errorf("cropped entry = %+v, want {PointIndex:2 DistanceMm:200}", cropped[0])
	}
}

// fixedPoints mirrors the external test package's double for a PointSet.
type fixedPoints [][2]float64

func (p fixedPoints) FeatureCount() int    { return len(p) }
func (p fixedPoints) GetLat(i int) float64 { return p[i][0] }
func (p fixedPoints) GetLon(i int) float64 { return p[i][1] }
