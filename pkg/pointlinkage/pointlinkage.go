// Package pointlinkage links an external, read-only set of points (transit
// stops, grid cells, arbitrary points of interest) against a StreetLayer:
// for each point it records the nearest usable edge and the point's
// projection onto it, without mutating the street layer itself. A linkage
// is rebuilt wholesale against a baseline layer and can be cheaply relinked
// against a scenario that only touches a handful of edges near a handful of
// points.
package pointlinkage

import (
	"errors"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/geo"
	"github.com/azybler/streetrouter/pkg/streetlayer"
)

// PointSet is the read-only collaborator interface satisfied by whatever
// external point collection is being linked (a GTFS stop table, a GeoJSON
// feature collection, a synthetic evaluation grid).
type PointSet interface {
	FeatureCount() int
	GetLat(i int) float64
	GetLon(i int) float64
}

// ErrUnlinked names the case of a point that has no usable edge within the
// linkage's search radius; Eval itself reports that case by returning
// ok == false.
var ErrUnlinked = errors.New("pointlinkage: point has no linked edge")

// Linkage holds one parallel-array entry per point: which edge it
// projects onto and the three distances needed to value a trip through
// it without re-running the spatial search at query time.
type Linkage struct {
	layer  *streetlayer.StreetLayer
	points PointSet
	mode   edgestore.StreetMode
	radius float64

	edge             []int32 // -1 if unlinked
	distanceToEdgeMm []int32
	distance0Mm      []int32
	distance1Mm      []int32
}

// Build links every point in points against layer for mode, searching up to
// radiusMeters from each point.
func Build(layer *streetlayer.StreetLayer, points PointSet, mode edgestore.StreetMode, radiusMeters float64) *Linkage {
	n := points.FeatureCount()
	lk := &Linkage{
		layer:            layer,
		points:           points,
		mode:             mode,
		radius:           radiusMeters,
		edge:             make([]int32, n),
		distanceToEdgeMm: make([]int32, n),
		distance0Mm:      make([]int32, n),
		distance1Mm:      make([]int32, n),
	}
	for i := 0; i < n; i++ {
		lk.linkPoint(i)
	}
	return lk
}

func (lk *Linkage) linkPoint(i int) {
	split, err := lk.layer.FindSplit(lk.points.GetLat(i), lk.points.GetLon(i), lk.radius, lk.mode)
	if err != nil {
		lk.edge[i] = -1
		return
	}
	lk.edge[i] = split.Edge
	lk.distanceToEdgeMm[i] = split.DistanceToEdgeMm
	lk.distance0Mm[i] = split.Distance0Mm
	lk.distance1Mm[i] = split.Distance1Mm
}

// Relink returns a new Linkage against scenario, sharing every entry of lk
// except those that need re-splitting, per spec §4.5 Building: a point is
// re-split if its previously-linked edge was deleted by scenario, or if the
// point's own location lies within the bounding geometry of any edge
// scenario appended, buffered by the linkage's own search radius (so a
// point picks up a newly created, closer edge even when its old linkage is
// untouched). Every other point is copied unchanged. This is the
// incremental path used when a scenario touches a small, localized part of
// a much larger baseline linkage.
func Relink(lk *Linkage, scenario *streetlayer.StreetLayer) *Linkage {
	next := &Linkage{
		layer:            scenario,
		points:           lk.points,
		mode:             lk.mode,
		radius:           lk.radius,
		edge:             append([]int32(nil), lk.edge...),
		distanceToEdgeMm: append([]int32(nil), lk.distanceToEdgeMm...),
		distance0Mm:      append([]int32(nil), lk.distance0Mm...),
		distance1Mm:      append([]int32(nil), lk.distance1Mm...),
	}

	n := lk.points.FeatureCount()
	for i := 0; i < n; i++ {
		deleted := next.edge[i] >= 0 && scenario.IsPairDeleted(edgestore.PairIndex(next.edge[i]))

		touched := deleted
		if !touched {
			lat, lon := lk.points.GetLat(i), lk.points.GetLon(i)
			env := geo.EnvelopeFromPoint(geo.ToFixed(lat), geo.ToFixed(lon)).BufferMeters(lk.radius)
			touched = len(scenario.ScenarioPairsInEnvelope(env)) > 0
		}

		if touched {
			next.linkPoint(i)
		}
	}
	return next
}

// Edge returns the directed edge point i projects onto, or -1 if unlinked.
func (lk *Linkage) Edge(i int) int32 { return lk.edge[i] }

// DistanceToEdgeMm returns the perpendicular distance from point i to its
// linked edge.
func (lk *Linkage) DistanceToEdgeMm(i int) int32 { return lk.distanceToEdgeMm[i] }
