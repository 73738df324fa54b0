package builder_test

import (
	"testing"

	pbf "github.com/paulmach/osm"

	"github.com/azybler/streetrouter/pkg/builder"
	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/osm"
)

// threeNodeLine builds a ParseResult for a single way spanning three nodes,
// the middle one an intersection.
func threeNodeLine() *osm.ParseResult {
	n0, n1, n2 := pbf.NodeID(1), pbf.NodeID(2), pbf.NodeID(3)
	return &osm.ParseResult{
		Ways: []osm.Way{
			{
				ID:              1,
				NodeIDs:         []pbf.NodeID{n0, n1, n2},
				StreetClass:     edgestore.StreetClassLocal,
				ForwardFlags:    edgestore.FlagAllowCar | edgestore.FlagAllowPedestrian,
				BackwardFlags:   edgestore.FlagAllowCar | edgestore.FlagAllowPedestrian,
				ForwardSpeedMps: 10,
			},
		},
		NodeLat: map[pbf.NodeID]float64{n0: 0, n1: 0.001, n2: 0.002},
		NodeLon: map[pbf.NodeID]float64{n0: 0, n1: 0, n2: 0},
		// A real parse marks every way endpoint an intersection as well as
		// any node shared by two ways (see pkg/osm/parser.go pass 1), so the
		// fixture mirrors that by listing all three nodes.
		Intersections: map[pbf.NodeID]bool{
			n0: true,
			n1: true,
			n2: true,
		},
	}
}

func TestBuildProducesOneVertexPerIntersectionPlusEndpoints(t *testing.T) {
	sl, err := builder.Build(threeNodeLine(), builder.Config{MinComponentSize: 0})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The way's two endpoints plus the one intersection node become
	// vertices; the intersection cuts the way into two edge pairs.
	if sl.Vertices.Size() != 3 {
		t.Fatalf("vertex count = %d, want 3", sl.Vertices.Size())
	}
	if sl.Edges.PairCount() != 2 {
		t.Fatalf("pair count = %d, want 2 (one per intersection-to-endpoint span)", sl.Edges.PairCount())
	}
}

func TestBuildDropsComponentsSmallerThanMinSize(t *testing.T) {
	result := threeNodeLine()
	sl, err := builder.Build(result, builder.Config{MinComponentSize: 100})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The whole fixture is one three-vertex, two-edge component: far below
	// a floor of 100 vertices, so every intersection should be dropped and
	// no edge pairs built.
	if sl.Edges.PairCount() != 0 {
		t.Fatalf("pair count = %d, want 0 (component below MinComponentSize should be dropped entirely)", sl.Edges.PairCount())
	}
}

func TestBuildAppliesDefaultSpeedWhenWayHasNone(t *testing.T) {
	n0, n1 := pbf.NodeID(1), pbf.NodeID(2)
	result := &osm.ParseResult{
		Ways: []osm.Way{
			{
				ID:            1,
				NodeIDs:       []pbf.NodeID{n0, n1},
				StreetClass:   edgestore.StreetClassPath,
				ForwardFlags:  edgestore.FlagAllowPedestrian,
				BackwardFlags: edgestore.FlagAllowPedestrian,
				// ForwardSpeedMps left zero: the builder should fall back
				// to its default walk speed for a pedestrian-only way.
			},
		},
		NodeLat: map[pbf.NodeID]float64{n0: 0, n1: 0.001},
		NodeLon: map[pbf.NodeID]float64{n0: 0, n1: 0},
		Intersections: map[pbf.NodeID]bool{
			n0: true,
			n1: true,
		},
	}
	sl, err := builder.Build(result, builder.Config{MinComponentSize: 0})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sl.Edges.PairCount() != 1 {
		t.Fatalf("pair count = %d, want 1", sl.Edges.PairCount())
	}
	speed := sl.Edges.At(0).GetSpeedMetersPerSecond()
	if speed <= 0 {
		t.Fatalf("default speed fallback should set a positive speed, got %f", speed)
	}
}

func TestBuildSkipsSpanWhoseLengthOverflowsInt32Millimeters(t *testing.T) {
	n0, n1 := pbf.NodeID(1), pbf.NodeID(2)
	result := &osm.ParseResult{
		Ways: []osm.Way{
			{
				ID:              1,
				NodeIDs:         []pbf.NodeID{n0, n1},
				StreetClass:     edgestore.StreetClassLocal,
				ForwardFlags:    edgestore.FlagAllowCar,
				BackwardFlags:   edgestore.FlagAllowCar,
				ForwardSpeedMps: 10,
			},
		},
		// Two near-antipodal points: about 20,000 km apart, i.e. roughly
		// 2e10 mm, well past int32's ~2.1e9 mm ceiling.
		NodeLat: map[pbf.NodeID]float64{n0: 0, n1: 0},
		NodeLon: map[pbf.NodeID]float64{n0: 0, n1: 179.9},
		Intersections: map[pbf.NodeID]bool{
			n0: true,
			n1: true,
		},
	}
	sl, err := builder.Build(result, builder.Config{MinComponentSize: 0})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if sl.Edges.PairCount() != 0 {
		t.Fatalf("pair count = %d, want 0 (span whose length overflows int32 mm must be dropped, not wrapped)", sl.Edges.PairCount())
	}
}
