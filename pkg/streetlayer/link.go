package streetlayer

import (
	"github.com/azybler/streetrouter/pkg/edgestore"
)

// snapToVertexMm is how close a split's projection must fall to one of its
// edge's endpoints before GetOrCreateVertexNear reuses that endpoint
// instead of cutting a new vertex into the edge. Splitting produces a
// vertex on top of (or a few millimeters from) an existing one on dense
// real-world networks far more often than it produces a genuinely new
// midpoint, and routing through a duplicate vertex a hair's width from the
// real one wastes a search step for no benefit.
const snapToVertexMm = 1000

// GetOrCreateVertexNear finds the best edge within radiusMeters of (lat,
// lon) for mode and returns a vertex at the projected point: an existing
// endpoint if the projection is within snapToVertexMm of one, otherwise a
// new vertex created by splitting the edge pair in two. Splitting is only
// permitted on an extend-only copy (a scenario): the baseline layer's
// topology is fixed once frozen, and a point linked against the baseline is
// expected to go through PointLinkage instead of mutating vertices in
// place.
func (sl *StreetLayer) GetOrCreateVertexNear(lat, lon float64, radiusMeters float64, mode edgestore.StreetMode) (int32, error) {
	split, err := sl.FindSplit(lat, lon, radiusMeters, mode)
	if err != nil {
		return -1, err
	}

	fwd := split.Edge
	c := sl.Edges.At(fwd)
	fromV := c.GetFromVertex()
	toV := c.GetToVertex()

	if split.Distance0Mm <= snapToVertexMm {
		return fromV, nil
	}
	if split.Distance1Mm <= snapToVertexMm {
		return toV, nil
	}

	return sl.splitPairAt(fwd, split)
}

// splitPairAt cuts edge pair fwd's forward/backward edges into two pairs
// each at the split's projected point, inserting a new vertex there. The
// new vertex always lands at the end of the layer's (possibly scenario)
// vertex store; the new edge pairs are appended the same way, leaving the
// original pair's slot in place but marked deleted so it no longer
// participates in routing or further splits.
func (sl *StreetLayer) splitPairAt(fwd int32, split Split) (int32, error) {
	pair := edgestore.PairIndex(fwd)
	c := sl.Edges.At(fwd)
	fromV := c.GetFromVertex()
	toV := c.GetToVertex()

	newVertex := sl.Vertices.AddVertexFixed(split.Lat, split.Lon)
	sl.growAdjacency(newVertex)

	geomFwd := c.GetGeometry()
	before, after := splitGeometryAt(geomFwd, split.SegmentIndex, split.Lat, split.Lon)

	// The two halves share the original pair's stored length in proportion
	// to where the projection fell, so together they add up to it exactly.
	firstLen := int32(0)
	if geomTotal := int64(split.Distance0Mm) + int64(split.Distance1Mm); geomTotal > 0 {
		firstLen = int32(int64(c.GetLengthMm()) * int64(split.Distance0Mm) / geomTotal)
	}
	secondLen := c.GetLengthMm() - firstLen

	firstFwd, err := sl.AddEdgePair(fromV, newVertex, firstLen, c.GetOSMWayID())
	if err != nil {
		return -1, err
	}
	secondFwd, err := sl.AddEdgePair(newVertex, toV, secondLen, c.GetOSMWayID())
	if err != nil {
		return -1, err
	}

	copyDirectionalAttributes(sl.Edges.At(firstFwd), c)
	copyDirectionalAttributes(sl.Edges.At(firstFwd).Reverse(), c.Reverse())
	copyDirectionalAttributes(sl.Edges.At(secondFwd), c)
	copyDirectionalAttributes(sl.Edges.At(secondFwd).Reverse(), c.Reverse())

	sl.Edges.At(firstFwd).SetGeometry(before)
	sl.Edges.At(secondFwd).SetGeometry(after)
	sl.Edges.At(firstFwd).SetStreetClass(c.GetStreetClass())
	sl.Edges.At(secondFwd).SetStreetClass(c.GetStreetClass())

	from := sl.Vertices.At(fromV)
	mid := sl.Vertices.At(newVertex)
	to := sl.Vertices.At(toV)
	sl.Edges.At(firstFwd).CalculateAngles(from.FixedLat(), from.FixedLon(), mid.FixedLat(), mid.FixedLon())
	sl.Edges.At(secondFwd).CalculateAngles(mid.FixedLat(), mid.FixedLon(), to.FixedLat(), to.FixedLon())

	sl.DeletePair(pair)
	return newVertex, nil
}

func copyDirectionalAttributes(dst, src edgestore.Cursor) {
	dst.SetSpeed(src.GetSpeedMetersPerSecond())
	flags := src.GetFlags()
	if flags&edgestore.FlagAllowPedestrian != 0 {
		dst.SetFlag(edgestore.FlagAllowPedestrian)
	}
	if flags&edgestore.FlagAllowBike != 0 {
		dst.SetFlag(edgestore.FlagAllowBike)
	}
	if flags&edgestore.FlagAllowCar != 0 {
		dst.SetFlag(edgestore.FlagAllowCar)
	}
	if flags&edgestore.FlagAllowWheelchair != 0 {
		dst.SetFlag(edgestore.FlagAllowWheelchair)
	}
	if flags&edgestore.FlagAllowLimitedWheelchair != 0 {
		dst.SetFlag(edgestore.FlagAllowLimitedWheelchair)
	}
	dst.SetLTS(src.LTS(), false)
}

// splitGeometryAt divides a forward-ordered flat lat/lon geometry array at
// the given segment index and point into the two halves left and right of
// the cut, each excluding the shared cut point itself (it becomes the new
// vertex, whose coordinates live in VertexStore, not in either half's
// geometry).
func splitGeometryAt(geom []int32, segIdx int, cutLat, cutLon int32) (before, after []int32) {
	for i := 0; i+1 < len(geom); i += 2 {
		if i/2 < segIdx {
			before = append(before, geom[i], geom[i+1])
		} else {
			after = append(after, geom[i], geom[i+1])
		}
	}
	return before, after
}
