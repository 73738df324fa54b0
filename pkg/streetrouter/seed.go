package streetrouter

import (
	"github.com/azybler/streetrouter/pkg/streetlayer"
	"github.com/azybler/streetrouter/pkg/vertexstore"
)

// SeedFromVertex returns origin seeds for starting a search at vertex v with
// no initial cost at v: every directed edge departing v, each valued at its
// own full traversal, since an edge's label is the cost of reaching its far
// end. The value is the traversal time in seconds whatever the request's
// dominance variable.
func SeedFromVertex(layer *streetlayer.StreetLayer, v int32) []OriginSeed {
	edges := layer.AdjacentEdges(v)
	seeds := make([]OriginSeed, 0, len(edges))
	for _, e := range edges {
		c := layer.Edges.At(e)
		t := c.TraversalTimeSeconds()
		seeds = append(seeds, OriginSeed{Edge: e, Value: t, TimeSeconds: t, DistanceMm: int64(c.GetLengthMm()), BackEdge: noEdge})
	}
	return seeds
}

// SeedFromSplit returns origin seeds for starting a search from a point
// already projected onto the street network, accounting for the partial
// distance already covered to reach each of the split edge's two
// directions. walkSpeedMps values the initial partial-edge traversal (the
// search proper then values the rest of the trip under the request's own
// mode); pass the request's own access speed.
func SeedFromSplit(layer *streetlayer.StreetLayer, split streetlayer.Split, walkSpeedMps float64) []OriginSeed {
	c := layer.Edges.At(split.Edge)
	total := split.Distance0Mm + split.Distance1Mm
	if total <= 0 {
		return []OriginSeed{
			{Edge: split.Edge, Value: 0, BackEdge: noEdge},
			{Edge: split.Edge ^ 1, Value: 0, BackEdge: noEdge},
		}
	}

	fullTime := c.TraversalTimeSeconds()
	if walkSpeedMps > 0 {
		fullTime = float64(total) / 1000.0 / walkSpeedMps
	}
	frac1 := float64(split.Distance1Mm) / float64(total)
	frac0 := float64(split.Distance0Mm) / float64(total)

	forwardRemaining := fullTime * frac1 // distance left to travel on the forward edge from the split point
	backwardRemaining := fullTime * frac0

	return []OriginSeed{
		{Edge: split.Edge, Value: forwardRemaining, TimeSeconds: forwardRemaining, DistanceMm: int64(split.Distance1Mm), BackEdge: noEdge},
		{Edge: split.Edge ^ 1, Value: backwardRemaining, TimeSeconds: backwardRemaining, DistanceMm: int64(split.Distance0Mm), BackEdge: noEdge},
	}
}

// SeedFromMultipleOrigins merges seeds from several starting points into
// one request — the multi-origin entry point for searches such as "egress
// time from every transit stop simultaneously", where the cheapest seed at
// a shared edge naturally wins during the search itself.
func SeedFromMultipleOrigins(groups ...[]OriginSeed) []OriginSeed {
	var out []OriginSeed
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// SeedFromReachedVertices builds mode-switch origin seeds from a prior
// search's reachable vertices, per spec §4.4 "Multi-origin seed (mode
// switch)": a traveler finishes one leg (walking, say) at a vertex reached
// by an earlier search, pays a fixed switch time/cost to board the new
// mode there (boarding a shared bike, say), and continues from every edge
// that vertex departs.
//
// reached is the prior search's per-vertex reachability, typically from
// ReachedVertices or ReachedVerticesWithFlag against the prior State.
// requireFlag, if non-zero, restricts seeding to vertices carrying that
// vertexstore flag in layer (e.g. vertexstore.FlagBikeShare, so only actual
// bike-share stations become boarding points rather than every vertex the
// walking leg touched); pass 0 to seed from every reached vertex (e.g. a
// park-and-ride lot boundary already filtered by the caller).
//
// Every seed carries a distinct synthetic BackEdge, one negative sentinel
// per source vertex, strictly below noEdge. This keeps the restriction
// checker's predecessor walk from conflating a mode-switch boundary with a
// true origin (BackEdge == noEdge) or with another boundary vertex's
// seeds, since co-dominant states in the middle of a turn restriction must
// never be confused across seeds that otherwise land on the same edge.
func SeedFromReachedVertices(layer *streetlayer.StreetLayer, reached map[int32]VertexState, switchValue, switchTimeSeconds float64, requireFlag vertexstore.Flag) []OriginSeed {
	var out []OriginSeed
	backEdge := noEdge - 1
	for v, prior := range reached {
		if requireFlag != 0 && !layer.Vertices.At(v).HasFlag(requireFlag) {
			continue
		}
		for _, e := range layer.AdjacentEdges(v) {
			out = append(out, OriginSeed{
				Edge:        e,
				Value:       prior.Value + switchValue,
				TimeSeconds: prior.TimeSeconds + switchTimeSeconds,
				DistanceMm:  prior.DistanceMm,
				BackEdge:    backEdge,
			})
		}
		backEdge--
	}
	return out
}
