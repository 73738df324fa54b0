// Package streetlayer owns a VertexStore/EdgeStore pair plus the derived
// structures needed to route and link points against them: per-vertex
// adjacency lists and an R-tree spatial index of edge envelopes. It is the
// unit that gets built once from a source (OSM PBF, a test fixture) and
// then cheaply extended into non-destructive scenario overlays.
package streetlayer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/tidwall/rtree"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/geo"
	"github.com/azybler/streetrouter/pkg/vertexstore"
)

// StreetLayer is the street network: vertices, directed edges, and the
// indexes derived from them.
type StreetLayer struct {
	Vertices *vertexstore.VertexStore
	Edges    *edgestore.EdgeStore

	// adjacency[v] lists every directed edge departing vertex v (one
	// direction of every incident pair: the one that starts at v).
	adjacency [][]int32

	// index holds every edge pair's forward-direction envelope, keyed by
	// pair index (not directed-edge index, since an envelope is direction-
	// agnostic). It is read-only once the layer is frozen.
	index *rtree.RTreeG[int32]

	// scenarioIndex holds the envelopes of pairs appended after Freeze, on
	// an extend-only copy. It stays nil on a baseline layer.
	scenarioIndex *rtree.RTreeG[int32]

	// deletedPairs marks pairs of the base layer that this scenario
	// removes without mutating the shared baseline, per the non-
	// destructive overlay design.
	deletedPairs map[int32]bool

	// baselinePairCount is the pair count at the moment this layer was
	// extended from a frozen baseline (0 for a baseline layer under
	// construction); pairs at or past this index are this scenario's own
	// and live in scenarioIndex rather than index.
	baselinePairCount int32

	envelope geo.Envelope
	frozen   bool
}

// New creates an empty StreetLayer ready for building.
func New() *StreetLayer {
	return &StreetLayer{
		Vertices: vertexstore.New(),
		Edges:    edgestore.New(),
	}
}

// AddEdgePair appends a directed edge pair between two existing vertices. It
// is a thin wrapper over EdgeStore.AddEdgePair that also grows the
// adjacency lists. On a layer under construction it does not touch the
// spatial index, which is built in bulk by BuildIndex once the topology is
// final (computing it incrementally per append would mean re-balancing the
// R-tree on every edge instead of loading it once); on an extend-only copy
// it inserts the new pair into the scenario's own scenarioIndex.
func (sl *StreetLayer) AddEdgePair(fromVertex, toVertex int32, lengthMm int32, osmWayID int64) (int32, error) {
	if sl.frozen {
		panic("streetlayer: AddEdgePair on a frozen layer")
	}
	fwd, err := sl.Edges.AddEdgePair(fromVertex, toVertex, lengthMm, osmWayID, int32(sl.Vertices.Size()))
	if err != nil {
		return -1, err
	}
	sl.growAdjacency(fromVertex, toVertex)
	sl.adjacency[fromVertex] = append(sl.adjacency[fromVertex], fwd)
	sl.adjacency[toVertex] = append(sl.adjacency[toVertex], fwd+1)

	if sl.IsExtendOnlyCopy() {
		sl.indexScenarioPair(edgestore.PairIndex(fwd))
	}
	return fwd, nil
}

// indexScenarioPair inserts a single newly-appended scenario pair into
// scenarioIndex, creating it on first use.
func (sl *StreetLayer) indexScenarioPair(p int32) {
	if sl.scenarioIndex == nil {
		sl.scenarioIndex = &rtree.RTreeG[int32]{}
	}
	env := sl.pairEnvelope(p)
	sl.scenarioIndex.Insert([2]float64{float64(env.MinLon), float64(env.MinLat)}, [2]float64{float64(env.MaxLon), float64(env.MaxLat)}, p)
}

func (sl *StreetLayer) growAdjacency(vertices ...int32) {
	maxV := int32(0)
	for _, v := range vertices {
		if v > maxV {
			maxV = v
		}
	}
	for int32(len(sl.adjacency)) <= maxV {
		sl.adjacency = append(sl.adjacency, nil)
	}
}

// AdjacentEdges returns every directed edge departing vertex v, one per
// incident pair.
func (sl *StreetLayer) AdjacentEdges(v int32) []int32 {
	if int(v) >= len(sl.adjacency) {
		return nil
	}
	return sl.adjacency[v]
}

// buildWorkers is the bounded degree of parallelism used for build-time
// loops over independent edge pairs (BuildIndex's envelope computation). It is
// capped at the host's core count minus one, leaving a core free for the
// scheduler and any caller-side work, matching how the original
// preprocessing pipeline bounded its own batch passes.
func buildWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// BuildIndex computes and loads the R-tree spatial index over every edge
// pair's envelope. It must run once, after all edges and their geometry are
// final, and before any split/link query. The per-pair envelope computation
// is split across a bounded worker pool since pairs are independent of one
// another; only the final tree insertion is serialized.
func (sl *StreetLayer) BuildIndex() {
	n := sl.Edges.PairCount()
	envelopes := make([]geo.Envelope, n)

	workers := buildWorkers()
	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for p := start; p < end; p++ {
				envelopes[p] = sl.pairEnvelope(int32(p))
			}
		}(start, end)
	}
	wg.Wait()

	sl.index = &rtree.RTreeG[int32]{}
	var overall geo.Envelope
	for p, env := range envelopes {
		sl.index.Insert([2]float64{float64(env.MinLon), float64(env.MinLat)}, [2]float64{float64(env.MaxLon), float64(env.MaxLat)}, int32(p))
		if p == 0 {
			overall = env
		} else {
			overall = overall.Union(env)
		}
	}
	sl.envelope = overall
}

func (sl *StreetLayer) pairEnvelope(pair int32) geo.Envelope {
	fwd := edgestore.ForwardEdge(pair)
	c := sl.Edges.At(fwd)
	from := sl.Vertices.At(c.GetFromVertex())
	to := sl.Vertices.At(c.GetToVertex())
	return c.GetEnvelope(from.FixedLat(), from.FixedLon(), to.FixedLat(), to.FixedLon())
}

// Freeze finalizes the baseline layer: it freezes the vertex/edge stores
// and requires the spatial index to already have been built.
func (sl *StreetLayer) Freeze() error {
	if sl.index == nil {
		return fmt.Errorf("streetlayer: Freeze called before BuildIndex")
	}
	sl.Vertices.Freeze()
	sl.Edges.Freeze()
	sl.frozen = true
	return nil
}

// Envelope returns the bounding envelope of every edge in the layer
// (baseline only; scenario-added edges don't widen it, matching how a
// scenario never changes the area a router reports itself as covering).
func (sl *StreetLayer) Envelope() geo.Envelope {
	return sl.envelope
}

// Extend returns a non-destructive scenario overlay of sl: the baseline's
// vertices, edges, and spatial index are shared read-only; the copy may
// append new vertices/edges (indexed separately in scenarioIndex) and mark
// base edge pairs as temporarily deleted without mutating sl or any other
// extension of it.
func (sl *StreetLayer) Extend() *StreetLayer {
	adjacency := make([][]int32, len(sl.adjacency))
	for v, edges := range sl.adjacency {
		cp := make([]int32, len(edges))
		copy(cp, edges)
		adjacency[v] = cp
	}
	return &StreetLayer{
		Vertices:          sl.Vertices.Extend(),
		Edges:             sl.Edges.Extend(),
		adjacency:         adjacency,
		index:             sl.index,
		baselinePairCount: int32(sl.Edges.PairCount()),
		envelope:          sl.envelope,
	}
}

// IsExtendOnlyCopy reports whether this layer wraps a frozen baseline.
func (sl *StreetLayer) IsExtendOnlyCopy() bool {
	return sl.Vertices.IsExtendOnlyCopy()
}

// DeletePair marks edge pair p as temporarily absent from this scenario. It
// is only valid on an extend-only copy. splitPairAt calls it for whichever
// pair it splits, a baseline pair or one this scenario appended itself.
func (sl *StreetLayer) DeletePair(p int32) {
	if sl.deletedPairs == nil {
		sl.deletedPairs = make(map[int32]bool)
	}
	sl.deletedPairs[p] = true
}

// IsPairDeleted reports whether pair p has been temporarily removed by this
// scenario.
func (sl *StreetLayer) IsPairDeleted(p int32) bool {
	return sl.deletedPairs != nil && sl.deletedPairs[p]
}

// ScenarioPairsInEnvelope returns every edge pair appended by this scenario
// (never a baseline pair) whose forward envelope intersects env. It
// consults only scenarioIndex, never the baseline index, so it answers
// "what new geometry did this scenario introduce here" rather than "what
// geometry exists here" — the query PointLinkage.Relink needs to decide
// whether an otherwise-untouched point should still be re-split because a
// newly added edge now passes closer to it than its current linkage.
func (sl *StreetLayer) ScenarioPairsInEnvelope(env geo.Envelope) []int32 {
	if sl.scenarioIndex == nil {
		return nil
	}
	min := [2]float64{float64(env.MinLon), float64(env.MinLat)}
	max := [2]float64{float64(env.MaxLon), float64(env.MaxLat)}
	var out []int32
	sl.scenarioIndex.Search(min, max, func(_, _ [2]float64, pair int32) bool {
		out = append(out, pair)
		return true
	})
	return out
}

