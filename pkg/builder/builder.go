// Package builder turns a parsed OSM extract into a frozen StreetLayer:
// intersections become vertices, each way is cut into one edge pair per
// intersection-to-intersection (or intersection-to-endpoint) span, turn
// restrictions are resolved from way/node ids to directed-edge indices, and
// small disconnected fragments are dropped before the layer is indexed and
// frozen.
package builder

import (
	"fmt"
	"log"
	"math"

	pbf "github.com/paulmach/osm"

	"github.com/azybler/streetrouter/pkg/component"
	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/geo"
	"github.com/azybler/streetrouter/pkg/osm"
	"github.com/azybler/streetrouter/pkg/streetlayer"
)

// Config controls build-time decisions not implied by the OSM data itself.
type Config struct {
	// MinComponentSize drops every weakly-connected component (counted in
	// intersection vertices) smaller than this.
	MinComponentSize int32
}

// DefaultConfig returns the build configuration used when the caller has no
// reason to deviate: a component floor of 40 vertices, matching the
// original system's default.
func DefaultConfig() Config {
	return Config{MinComponentSize: 40}
}

type wayNodeKey struct {
	way  int64
	node int64
}

// Build constructs a frozen StreetLayer from a parsed OSM extract.
func Build(result *osm.ParseResult, cfg Config) (*streetlayer.StreetLayer, error) {
	keepNode := nodesToKeep(result, cfg.MinComponentSize)

	sl := streetlayer.New()

	nodeToVertex := make(map[int64]int32, len(result.Intersections))
	for id := range result.Intersections {
		nid := int64(id)
		if !keepNode[nid] {
			continue
		}
		if _, ok := result.NodeLat[id]; !ok {
			continue
		}
		nodeToVertex[nid] = sl.Vertices.AddVertex(result.NodeLat[id], result.NodeLon[id])
	}

	arrivesAt := make(map[wayNodeKey]int32)   // forward edge arriving at node
	departsFrom := make(map[wayNodeKey]int32) // forward edge departing node

	var skippedSpans int
	for _, way := range result.Ways {
		segs := cutAtIntersections(way.NodeIDs, result.Intersections)
		for _, seg := range segs {
			fromNode := int64(seg[0])
			toNode := int64(seg[len(seg)-1])
			fromV, ok1 := nodeToVertex[fromNode]
			toV, ok2 := nodeToVertex[toNode]
			if !ok1 || !ok2 {
				skippedSpans++
				continue
			}

			lengthMm, geomFixed, ok := spanGeometry(seg, result.NodeLat, result.NodeLon)
			if !ok {
				skippedSpans++
				continue
			}

			fwd, err := sl.AddEdgePair(fromV, toV, lengthMm, int64(way.ID))
			if err != nil {
				skippedSpans++
				continue
			}
			bwd := fwd + 1

			if len(geomFixed) > 0 {
				sl.Edges.At(fwd).SetGeometry(geomFixed)
			}
			fromC := sl.Vertices.At(fromV)
			toC := sl.Vertices.At(toV)
			sl.Edges.At(fwd).CalculateAngles(fromC.FixedLat(), fromC.FixedLon(), toC.FixedLat(), toC.FixedLon())

			sl.Edges.At(fwd).SetStreetClass(way.StreetClass)
			sl.Edges.At(bwd).SetStreetClass(way.StreetClass)
			applyDirectionLabel(sl.Edges.At(fwd), way.ForwardFlags, way.ForwardSpeedMps)
			applyDirectionLabel(sl.Edges.At(bwd), way.BackwardFlags, way.BackwardSpeedMps)

			arrivesAt[wayNodeKey{int64(way.ID), toNode}] = fwd
			departsFrom[wayNodeKey{int64(way.ID), fromNode}] = fwd
		}
	}
	if skippedSpans > 0 {
		log.Printf("builder: skipped %d way spans with unresolved or filtered endpoints", skippedSpans)
	}

	var resolvedRestrictions, droppedRestrictions int
	for _, r := range result.Restrictions {
		tr, ok := resolveRestriction(r, arrivesAt, departsFrom)
		if !ok {
			droppedRestrictions++
			continue
		}
		if sl.Edges.AddTurnRestriction(tr) >= 0 {
			resolvedRestrictions++
		} else {
			droppedRestrictions++
		}
	}
	log.Printf("builder: resolved %d turn restrictions, dropped %d", resolvedRestrictions, droppedRestrictions)

	sl.BuildIndex()
	if err := sl.Freeze(); err != nil {
		return nil, fmt.Errorf("builder: %w", err)
	}
	return sl, nil
}

// nodesToKeep unions every pair of consecutive nodes along each way (any
// mode connects the component, since the goal is just to find fragments
// unreachable by any mode) and returns the set of intersection nodes whose
// component has at least minSize intersection-vertices. minSize <= 0
// disables filtering (every intersection node is kept).
func nodesToKeep(result *osm.ParseResult, minSize int32) map[int64]bool {
	keepAll := func() map[int64]bool {
		keep := make(map[int64]bool, len(result.Intersections))
		for id := range result.Intersections {
			keep[int64(id)] = true
		}
		return keep
	}
	if minSize <= 0 {
		return keepAll()
	}

	index := make(map[int64]int32)
	nextIdx := func(id int64) int32 {
		if i, ok := index[id]; ok {
			return i
		}
		i := int32(len(index))
		index[id] = i
		return i
	}
	for _, way := range result.Ways {
		for _, id := range way.NodeIDs {
			nextIdx(int64(id))
		}
	}
	uf := component.NewUnionFind(int32(len(index)))
	for _, way := range result.Ways {
		for i := 0; i+1 < len(way.NodeIDs); i++ {
			uf.Union(index[int64(way.NodeIDs[i])], index[int64(way.NodeIDs[i+1])])
		}
	}

	rootVertexCount := make(map[int32]int32)
	for id := range result.Intersections {
		idx, ok := index[int64(id)]
		if !ok {
			continue
		}
		rootVertexCount[uf.Find(idx)]++
	}

	keep := make(map[int64]bool, len(result.Intersections))
	var dropped int32
	for id := range result.Intersections {
		idx, ok := index[int64(id)]
		if !ok {
			continue
		}
		if rootVertexCount[uf.Find(idx)] >= minSize {
			keep[int64(id)] = true
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("builder: dropped %d intersection vertices in components smaller than %d", dropped, minSize)
	}
	return keep
}

// defaultWalkSpeedMps and defaultBikeSpeedMps seed the single stored speed
// column for edges the OSM reader didn't derive a car speed for (paths,
// sidewalks, cycleways): EdgeStore has one speed per direction, not one per
// mode, so a road open to car, bike, and foot alike is timed at its car
// free-flow speed for every mode.
const (
	defaultWalkSpeedMps = 1.4
	defaultBikeSpeedMps = 4.0
)

func applyDirectionLabel(c edgestore.Cursor, flags edgestore.Flag, speedMps float64) {
	c.SetFlag(flags)
	switch {
	case speedMps > 0:
		c.SetSpeed(speedMps)
	case flags&edgestore.FlagAllowBike != 0:
		c.SetSpeed(defaultBikeSpeedMps)
	case flags&edgestore.FlagAllowPedestrian != 0:
		c.SetSpeed(defaultWalkSpeedMps)
	}
}

// cutAtIntersections splits a way's node chain into spans, each running
// from one intersection (or the way's first node) to the next intersection
// (or the way's last node). Every span shares its cut endpoints with
// adjacent spans, so the resulting vertex set exactly covers the
// intersections map.
func cutAtIntersections(nodeIDs []pbf.NodeID, intersections map[pbf.NodeID]bool) [][]pbf.NodeID {
	var spans [][]pbf.NodeID
	if len(nodeIDs) == 0 {
		return spans
	}
	start := 0
	for i := 1; i < len(nodeIDs); i++ {
		if intersections[nodeIDs[i]] || i == len(nodeIDs)-1 {
			spans = append(spans, nodeIDs[start:i+1])
			start = i
		}
	}
	return spans
}

// spanGeometry returns the span's total length in millimeters and its
// intermediate shape points (excluding the two endpoints) as a flat
// fixed-point lat/lon slice. ok is false when the span's length in
// millimeters would overflow int32 before it ever reaches
// EdgeStore.AddEdgePair's own range check — Go's float64-to-int32
// conversion on overflow is implementation-defined, so this must be caught
// here rather than relying on a negative value falling out the other side.
func spanGeometry(nodeIDs []pbf.NodeID, lat, lon map[pbf.NodeID]float64) (lengthMm int32, geomFixed []int32, ok bool) {
	var totalM float64
	for i := 0; i+1 < len(nodeIDs); i++ {
		totalM += geo.Haversine(lat[nodeIDs[i]], lon[nodeIDs[i]], lat[nodeIDs[i+1]], lon[nodeIDs[i+1]])
	}
	if len(nodeIDs) > 2 {
		geomFixed = make([]int32, 0, (len(nodeIDs)-2)*2)
		for _, id := range nodeIDs[1 : len(nodeIDs)-1] {
			geomFixed = append(geomFixed, geo.ToFixed(lat[id]), geo.ToFixed(lon[id]))
		}
	}
	totalMm := totalM * 1000.0
	if totalMm > float64(math.MaxInt32) {
		return 0, nil, false
	}
	mm := int32(totalMm)
	if mm < 1 {
		mm = 1
	}
	return mm, geomFixed, true
}

// resolveRestriction maps an OSM-id-addressed restriction to directed edge
// indices using the arrival/departure maps recorded during the edge cut.
func resolveRestriction(r osm.Restriction, arrivesAt, departsFrom map[wayNodeKey]int32) (edgestore.TurnRestriction, bool) {
	switch r.Kind {
	case osm.RestrictionViaNode:
		from, ok1 := arrivesAt[wayNodeKey{int64(r.FromWay), int64(r.ViaNode)}]
		to, ok2 := departsFrom[wayNodeKey{int64(r.ToWay), int64(r.ViaNode)}]
		if !ok1 || !ok2 {
			return edgestore.TurnRestriction{}, false
		}
		return edgestore.TurnRestriction{FromEdge: from, ToEdge: to, Only: r.Only}, true
	default:
		// Via-way restrictions need the specific junction node connecting
		// "from" to the via way, which this builder's simplified relation
		// parsing doesn't retain; drop rather than guess.
		return edgestore.TurnRestriction{}, false
	}
}
