package pointlinkage

import (
	"runtime"
	"sync"

	"github.com/azybler/streetrouter/pkg/geo"
)

// Eval returns the total travel time in seconds to reach point i from the
// street network side, given the time already accumulated to reach both
// ends of its linked edge (vertexTime0 for the edge's origin, vertexTime1
// for its destination) and an off-street speed for the final perpendicular
// hop from the edge to the point itself (e.g. a slower walking speed across
// a parking lot or platform, distinct from onStreetSpeedMps which values
// movement along the edge). It reports the cheaper of approaching via
// either end of the edge.
func (lk *Linkage) Eval(i int, vertexTime0, vertexTime1 float64, onStreetSpeedMps, offStreetSpeedMps float64) (seconds float64, ok bool) {
	e := lk.edge[i]
	if e < 0 {
		return 0, false
	}

	along0 := float64(lk.distance0Mm[i]) / 1000.0 / onStreetSpeedMps
	along1 := float64(lk.distance1Mm[i]) / 1000.0 / onStreetSpeedMps
	off := 0.0
	if offStreetSpeedMps > 0 {
		off = float64(lk.distanceToEdgeMm[i]) / 1000.0 / offStreetSpeedMps
	}

	via0 := vertexTime0 + along0 + off
	via1 := vertexTime1 + along1 + off
	if via0 < via1 {
		return via0, true
	}
	return via1, true
}

// StopToVertexDistance is one transit stop's precomputed map from a
// reachable street vertex to the distance (in millimeters) of the access
// path the transit layer already found to it — the external collaborator
// input spec §6 names stopToVertexDistance[stopIndex].
type StopToVertexDistance map[int32]int64

// Stop bundles one transit stop's geographic location (used to bound the
// egress search to points actually near it) with its precomputed
// stop->vertex distance table, matching the transit layer's per-stop
// external-interface shape (§6: stop count, stopToStreetVertex, a
// precomputed stopToVertexDistance map, and a spatial point per stop).
type Stop struct {
	Lat, Lon           float64
	ToVertexDistanceMm StopToVertexDistance
}

// EgressEntry is one point reachable from a stop's egress table, and its
// distance from the stop in millimeters — the packed (pointIndex,
// distance) pair spec §6 calls PointLinkage.egressCostTable[stopIndex].
type EgressEntry struct {
	PointIndex int
	DistanceMm int64
}

// BuildEgressTables extends every stop's stopToVertexDistance table into a
// packed list of (pointIndex, distanceMillimeters) pairs, per spec §4.5
// "Egress distance tables": for each point within an envelope around the
// stop's location buffered by lk's link radius, ignore it if unlinked,
// otherwise combine stopToVertex(from)+distance0+distanceToEdge and
// stopToVertex(to)+distance1+distanceToEdge and keep the minimum, dropping
// the point if neither of its linked edge's endpoints appears in the
// stop's table. Tables are built in parallel across stops, each stop
// writing only its own output slot, matching how the rest of this module
// bounds build-time parallelism (streetlayer.BuildIndex's worker pool).
func BuildEgressTables(lk *Linkage, stops []Stop) [][]EgressEntry {
	out := make([][]EgressEntry, len(stops))

	workers := buildWorkers()
	var wg sync.WaitGroup
	chunk := (len(stops) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}
	for start := 0; start < len(stops); start += chunk {
		end := start + chunk
		if end > len(stops) {
			end = len(stops)
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for s := start; s < end; s++ {
				out[s] = lk.egressTableForStop(stops[s])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

// buildWorkers bounds build-time parallelism the same way
// streetlayer.BuildIndex does: one goroutine per core, minus one left free,
// at least one.
func buildWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

func (lk *Linkage) egressTableForStop(stop Stop) []EgressEntry {
	env := geo.EnvelopeFromPoint(geo.ToFixed(stop.Lat), geo.ToFixed(stop.Lon)).BufferMeters(lk.radius)

	var out []EgressEntry
	for _, i := range lk.pointsInEnvelope(env) {
		e := lk.edge[i]
		if e < 0 {
			continue
		}
		c := lk.layer.Edges.At(e)

		best := int64(-1)
		if fromDist, ok := stop.ToVertexDistanceMm[c.GetFromVertex()]; ok {
			v := fromDist + int64(lk.distance0Mm[i]) + int64(lk.distanceToEdgeMm[i])
			if best < 0 || v < best {
				best = v
			}
		}
		if toDist, ok := stop.ToVertexDistanceMm[c.GetToVertex()]; ok {
			v := toDist + int64(lk.distance1Mm[i]) + int64(lk.distanceToEdgeMm[i])
			if best < 0 || v < best {
				best = v
			}
		}
		if best >= 0 {
			out = append(out, EgressEntry{PointIndex: i, DistanceMm: best})
		}
	}
	return out
}

// EnvelopeQueryable is implemented by point sets that can report which of
// their points fall within a geographic envelope without the caller
// scanning every point (a regular grid can compute the index range
// directly; a large feature collection might keep its own spatial index).
// egressTableForStop uses it when the linkage's PointSet implements it,
// falling back to a full scan over FeatureCount points otherwise.
type EnvelopeQueryable interface {
	PointsInEnvelope(minLat, minLon, maxLat, maxLon float64) []int
}

func (lk *Linkage) pointsInEnvelope(env geo.Envelope) []int {
	if eq, ok := lk.points.(EnvelopeQueryable); ok {
		return eq.PointsInEnvelope(geo.ToFloat(env.MinLat), geo.ToFloat(env.MinLon), geo.ToFloat(env.MaxLat), geo.ToFloat(env.MaxLon))
	}
	n := lk.points.FeatureCount()
	var out []int
	for i := 0; i < n; i++ {
		fLat := geo.ToFixed(lk.points.GetLat(i))
		fLon := geo.ToFixed(lk.points.GetLon(i))
		if env.Contains(fLat, fLon) {
			out = append(out, i)
		}
	}
	return out
}

// CropEgressTable slices a previously built stop's egress table down to
// only the points whose index falls in [keepMin, keepMax), without
// recomputing anything, per spec §4.5's "when cropping a linkage to a
// sub-area of a gridded point set, existing tables are simply sliced
// without recomputation." Kept entries are renumbered relative to
// keepMin, matching how a cropped grid point set renumbers its own points
// from 0.
func CropEgressTable(table []EgressEntry, keepMin, keepMax int) []EgressEntry {
	var out []EgressEntry
	for _, e := range table {
		if e.PointIndex >= keepMin && e.PointIndex < keepMax {
			out = append(out, EgressEntry{PointIndex: e.PointIndex - keepMin, DistanceMm: e.DistanceMm})
		}
	}
	return out
}
