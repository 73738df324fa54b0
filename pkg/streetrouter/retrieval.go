package streetrouter

import (
	"github.com/azybler/streetrouter/pkg/streetlayer"
	"github.com/azybler/streetrouter/pkg/vertexstore"
)

// VertexState is a vertex's best known value/time/distance at the end of a
// completed search, the shape spec §6 calls reachedVertices(flag)'s
// map<vertexIndex, State> result.
type VertexState struct {
	Value       float64
	TimeSeconds float64
	DistanceMm  int64
}

// StateAtEdge returns the best known value/time/distance at directed edge e
// after a completed search, and whether e was reached at all.
func StateAtEdge(state *State, e int32) (value, timeSeconds float64, distanceMm int64, reached bool) {
	if !state.Reached(e) {
		return infinite, infinite, 0, false
	}
	return state.ValueAt(e), state.TimeSecondsAt(e), state.DistanceMmAt(e), true
}

// StateAtVertex returns the best state among the directed edges arriving at
// vertex v (the reverses of the edges departing it), whichever has the lower
// value, representing "arrived at v" regardless
// of which incident edge the search actually settled first. This is the
// usual way to answer "how far to vertex v" since the search itself is
// edge-keyed, not vertex-keyed.
func StateAtVertex(layer *streetlayer.StreetLayer, state *State, v int32) (value, timeSeconds float64, distanceMm int64, reached bool) {
	best := infinite
	bestTime, bestDist := infinite, int64(0)
	found := false
	for _, e := range layer.AdjacentEdges(v) {
		// An edge departing v was arrived at via its reverse arriving at v;
		// the state attached to e's reverse reflects having just reached v
		// along whatever path led to e's reverse's predecessor, so consult
		// the reverse of each edge departing v, which is an edge arriving
		// at v.
		arriving := e ^ 1
		val, t, d, ok := StateAtEdge(state, arriving)
		if !ok {
			continue
		}
		if !found || val < best {
			best, bestTime, bestDist, found = val, t, d, true
		}
	}
	if !found {
		return infinite, infinite, 0, false
	}
	return best, bestTime, bestDist, true
}

// StateAt returns the value/time at a point split onto an edge: an
// endpoint's state plus the share of the edge's traversal time between that
// endpoint and the split point, taking whichever endpoint gives the lower
// value. Exact for
// a search that has settled both endpoints; an approximation when the
// search frontier has only reached one side.
func StateAt(layer *streetlayer.StreetLayer, state *State, split streetlayer.Split) (value, timeSeconds float64, reached bool) {
	c := layer.Edges.At(split.Edge)
	fromVertexValue, fromTime, _, fromOk := StateAtVertex(layer, state, c.GetFromVertex())
	toVertexValue, toTime, _, toOk := StateAtVertex(layer, state, c.GetToVertex())

	total := split.Distance0Mm + split.Distance1Mm
	if total <= 0 {
		if fromOk {
			return fromVertexValue, fromTime, true
		}
		if toOk {
			return toVertexValue, toTime, true
		}
		return infinite, infinite, false
	}
	frac := float64(split.Distance0Mm) / float64(total)

	extra := c.TraversalTimeSeconds()
	switch {
	case fromOk && toOk:
		viaFrom := fromVertexValue + extra*frac
		viaTo := toVertexValue + extra*(1-frac)
		if viaFrom < viaTo {
			return viaFrom, fromTime + extra*frac, true
		}
		return viaTo, toTime + extra*(1-frac), true
	case fromOk:
		return fromVertexValue + extra*frac, fromTime + extra*frac, true
	case toOk:
		return toVertexValue + extra*(1-frac), toTime + extra*(1-frac), true
	default:
		return infinite, infinite, false
	}
}

// ReachedVertices returns every vertex with at least one settled incident
// edge, paired with its best StateAtVertex value. Vertex count bounds the
// scan since the search itself only tracks touched edges, not vertices.
func ReachedVertices(layer *streetlayer.StreetLayer, state *State) map[int32]float64 {
	out := make(map[int32]float64)
	seen := make(map[int32]bool)
	for _, e := range state.touched {
		for _, v := range [2]int32{layer.Edges.At(e).GetFromVertex(), layer.Edges.At(e).GetToVertex()} {
			if seen[v] {
				continue
			}
			seen[v] = true
			if val, _, _, ok := StateAtVertex(layer, state, v); ok {
				out[v] = val
			}
		}
	}
	return out
}

// ReachedVerticesWithFlag mirrors ReachedVertices but keeps only vertices
// carrying flag in layer's VertexStore, per spec §4.4 Retrieval
// "reachedVertices(flag): iterate stored states, keep the best per vertex
// whose flag matches." A zero flag keeps every reached vertex. Used, among
// other things, to restrict a mode-switch
// seed (SeedFromReachedVertices) to genuine boundary vertices such as
// bike-share stations or park-and-ride lots rather than every vertex a
// prior search happened to touch.
func ReachedVerticesWithFlag(layer *streetlayer.StreetLayer, state *State, flag vertexstore.Flag) map[int32]VertexState {
	out := make(map[int32]VertexState)
	seen := make(map[int32]bool)
	for _, e := range state.touched {
		for _, v := range [2]int32{layer.Edges.At(e).GetFromVertex(), layer.Edges.At(e).GetToVertex()} {
			if seen[v] {
				continue
			}
			seen[v] = true
			if flag != 0 && !layer.Vertices.At(v).HasFlag(flag) {
				continue
			}
			if val, t, d, ok := StateAtVertex(layer, state, v); ok {
				out[v] = VertexState{Value: val, TimeSeconds: t, DistanceMm: d}
			}
		}
	}
	return out
}

// ReachedStops returns, for every stop in the given stop->vertex table that
// was reached, its best value. Used to answer "which transit stops are
// within N seconds of this point" for a transit egress/access search.
func ReachedStops(layer *streetlayer.StreetLayer, state *State, stopToVertex []int32) map[int]float64 {
	out := make(map[int]float64)
	for stop, v := range stopToVertex {
		if v < 0 {
			continue
		}
		if val, _, _, ok := StateAtVertex(layer, state, v); ok {
			out[stop] = val
		}
	}
	return out
}

// bestValueAtDestination reports the lowest value reached so far among a
// set of destination directed edges, used by callers that want to stop a
// search early once further progress can't possibly beat the best answer
// already found (target pruning on a many-to-one or one-to-one query).
func bestValueAtDestination(state *State, destinations []int32) float64 {
	best := infinite
	for _, e := range destinations {
		if v := state.valueOf(e); v < best {
			best = v
		}
	}
	return best
}
