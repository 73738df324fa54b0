package streetrouter

import (
	"context"
	"errors"
	"sync"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/streetlayer"
)

// ErrNoOrigin is returned when a Request carries no Origins.
var ErrNoOrigin = errors.New("streetrouter: no usable origin")

// Request configures a single search. A StreetRouter is reused across many
// requests against the same StreetLayer; Request and State are the only
// per-query values.
type Request struct {
	Mode         edgestore.StreetMode
	Dominance    DominanceVariable
	DriveOnRight bool

	// Origins seeds the search directly at one or more directed edges,
	// each with its own initial value/time/distance — used for egress
	// searches from multiple transit stops in one sweep, or when the
	// caller has already resolved a point to a split.
	Origins []OriginSeed

	// MaxValue prunes the frontier: edges whose value would exceed
	// MaxValue are never enqueued. Zero means unbounded.
	MaxValue float64

	// TimeLimitSeconds and DistanceLimitMm are independent soft budgets,
	// checked on every edge expansion regardless of which DominanceVariable
	// the search is minimizing: a time-dominance search can still cap total
	// distance (or vice versa), and a weight-dominance search can cap both
	// simultaneously. Zero means unbounded; if both are zero the whole
	// reachable component is explored.
	TimeLimitSeconds float64
	DistanceLimitMm  int64

	// Reverse runs the search against the topology and turn-restriction
	// table reversed: from each Origins edge, explore the edges that could
	// have led to it rather than the edges it leads to. Used to build
	// egress/backward reachability (e.g. every vertex within N minutes of
	// a destination) without re-deriving the network backward by hand.
	Reverse bool

	// CostFieldWeights, consulted only under DominanceWeight, scales each
	// named registered EdgeStore cost field's per-edge contribution before
	// it's added to elapsed time to form the generalized weight.
	CostFieldWeights map[string]float64

	// RequireWheelchair restricts pedestrian traversal to wheelchair-
	// accessible edges (FlagAllowWheelchair, or FlagAllowLimitedWheelchair
	// if LimitedWheelchairOK).
	RequireWheelchair   bool
	LimitedWheelchairOK bool

	// MaxBikeLTS caps the level-of-traffic-stress a bicycle search may use
	// at full bike speed; edges above it are still traversable by walking
	// the bike, at walk speed, if WalkBikeFallback is set.
	MaxBikeLTS       int
	WalkBikeFallback bool
	WalkSpeedMps     float64

	// Destinations, if non-empty, stops the search as soon as every
	// destination edge has either settled or can no longer improve: once
	// the frontier's next value exceeds the best value seen among
	// Destinations, nothing left in the queue can produce a shorter path
	// to any of them.
	Destinations []int32

	// Visit, if non-nil, is called once for every edge as it is settled
	// (popped off the frontier with its final value), in settlement
	// order — used to stream live progress or to implement a custom
	// target-pruning stop condition beyond MaxValue.
	Visit func(edge int32, state *State) (keepGoing bool)
}

// OriginSeed is one initial label a search starts from.
type OriginSeed struct {
	Edge        int32
	Value       float64
	TimeSeconds float64
	DistanceMm  int64

	// BackEdge is stored as this seed's predecessor edge. A true origin
	// (no path led here) must set it to noEdge (-1); a mode-switch seed
	// derived from a prior search (SeedFromReachedVertices) sets it to a
	// distinct sentinel below noEdge per source vertex, so that the
	// restriction checker's predecessor walk can never mistake one seed's
	// starting point for another's, or for a plain origin with no
	// restriction history at all.
	BackEdge int32
}

// StreetRouter runs per-directed-edge label-correcting searches against a
// single StreetLayer. Each Search call works in its own State taken from a
// sync.Pool, so several goroutines may call Search on one StreetRouter at
// once; a single State (the label map, priority queue, touched list) is
// strictly single-threaded and owned by the goroutine that ran the search.
type StreetRouter struct {
	layer *streetlayer.StreetLayer

	statePool sync.Pool
}

// New creates a StreetRouter over layer.
func New(layer *streetlayer.StreetLayer) *StreetRouter {
	r := &StreetRouter{layer: layer}
	r.statePool.New = func() interface{} { return NewState(DominanceTimeSeconds) }
	return r
}

// acquireState returns a pooled State reset for dominance, allocating a new
// one only if the pool is empty.
func (r *StreetRouter) acquireState(dominance DominanceVariable) *State {
	s := r.statePool.Get().(*State)
	s.Reset()
	s.dominance = dominance
	return s
}

// Release returns s to the router's pool for reuse by a later Search call.
func (r *StreetRouter) Release(s *State) {
	r.statePool.Put(s)
}

// Search runs a label-correcting search per req and returns the resulting
// State, from which callers read out distances via StateAtEdge/
// StateAtVertex/StateAt or ReachedVertices. The caller must call
// r.Release(state) once done with it.
func (r *StreetRouter) Search(ctx context.Context, req Request) (*State, error) {
	if len(req.Origins) == 0 {
		return nil, ErrNoOrigin
	}

	state := r.acquireState(req.Dominance)
	for _, o := range req.Origins {
		if r.layer.IsPairDeleted(edgestore.PairIndex(o.Edge)) {
			continue // a scenario may delete the very edge a caller seeds from
		}
		if _, ok := r.usable(r.layer.Edges.At(o.Edge), &req); !ok {
			continue // the request's mode may not use this edge
		}
		state.touch(o.Edge, o.Value, o.TimeSeconds, o.DistanceMm, o.BackEdge)
	}

	var restrictions *restrictionChecker
	if req.Reverse {
		restrictions = newReverseRestrictionChecker(r.layer.ReverseRestrictions(), state.PredecessorEdge)
	} else {
		restrictions = newForwardRestrictionChecker(r.layer.Edges, state.PredecessorEdge)
	}

	iterations := 0
	for !state.queue.empty() {
		iterations++
		if iterations&0xff == 0 {
			select {
			case <-ctx.Done():
				return state, ctx.Err()
			default:
			}
		}

		edge, value := state.queue.pop()
		if len(req.Destinations) > 0 && value > bestValueAtDestination(state, req.Destinations) {
			break
		}
		st, ok := state.get(edge)
		if !ok || st.settled || st.value != value {
			continue // stale entry
		}
		if r.layer.IsPairDeleted(edgestore.PairIndex(edge)) {
			continue // scenario removed this edge; never settle or expand it
		}
		st.settled = true

		if req.Visit != nil && !req.Visit(edge, state) {
			break
		}

		r.expand(state, &req, restrictions, edge, st)
	}

	return state, nil
}

// expand relaxes every legal transition out of the directed edge just
// settled, pushing improved labels for its neighbors.
func (r *StreetRouter) expand(state *State, req *Request, restrictions *restrictionChecker, fromEdge int32, fromState *edgeState) {
	fromCursor := r.layer.Edges.At(fromEdge)
	fromIsLink := fromCursor.HasFlag(edgestore.FlagLink)

	var candidates []int32
	if !req.Reverse {
		candidates = r.layer.AdjacentEdges(fromCursor.GetToVertex())
	} else {
		for _, x := range r.layer.AdjacentEdges(fromCursor.GetFromVertex()) {
			candidates = append(candidates, x^1)
		}
	}

	for _, nextEdge := range candidates {
		if nextEdge == (fromEdge ^ 1) {
			continue // immediate U-turn back onto the edge just arrived on
		}
		if r.layer.IsPairDeleted(edgestore.PairIndex(nextEdge)) {
			continue // scenario removed this edge
		}
		nextCursor := r.layer.Edges.At(nextEdge)

		walkBike, ok := r.usable(nextCursor, req)
		if !ok {
			continue
		}

		if !restrictions.canTurnFrom(fromEdge, nextEdge, fromIsLink, nextCursor.HasFlag(edgestore.FlagLink)) {
			continue
		}

		timeDelta := r.traversalTimeSeconds(nextCursor, req, walkBike)
		if req.Mode == edgestore.ModeCar {
			timeDelta += CarTurnCostSeconds(ClassifyTurn(fromCursor, nextCursor, req.DriveOnRight))
		}
		timeDelta = applyZeroDeltaNudge(timeDelta)

		distDelta := int64(nextCursor.GetLengthMm())
		valueDelta := timeDelta
		if req.Dominance == DominanceDistanceMm {
			valueDelta = float64(distDelta)
		} else if req.Dominance == DominanceWeight {
			valueDelta = timeDelta + r.costFieldDelta(nextCursor, req)
		}

		newValue := fromState.value + valueDelta
		if req.MaxValue > 0 && newValue > req.MaxValue {
			continue
		}
		newTime := fromState.timeSeconds + timeDelta
		newDist := fromState.distanceMm + distDelta
		if req.TimeLimitSeconds > 0 && newTime > req.TimeLimitSeconds {
			continue
		}
		if req.DistanceLimitMm > 0 && newDist > req.DistanceLimitMm {
			continue
		}
		if newValue < state.valueOf(nextEdge) {
			state.touch(nextEdge, newValue, newTime, newDist, fromEdge)
		}
	}
}

// usable reports whether nextCursor may be traversed under req, and whether
// doing so requires walking a bike (LTS over the cap, with the fallback
// enabled).
func (r *StreetRouter) usable(nextCursor edgestore.Cursor, req *Request) (walkBike bool, ok bool) {
	switch req.Mode {
	case edgestore.ModeWalk:
		if !nextCursor.AllowsMode(edgestore.ModeWalk) {
			return false, false
		}
		if req.RequireWheelchair && !edgestore.AllowsWheelchair(nextCursor.GetFlags(), req.LimitedWheelchairOK) {
			return false, false
		}
		return false, true
	case edgestore.ModeBicycle:
		if nextCursor.AllowsMode(edgestore.ModeBicycle) && (req.MaxBikeLTS <= 0 || nextCursor.LTS() <= req.MaxBikeLTS) {
			return false, true
		}
		if req.WalkBikeFallback && nextCursor.AllowsMode(edgestore.ModeWalk) {
			return true, true
		}
		return false, false
	case edgestore.ModeCar:
		if !nextCursor.AllowsMode(edgestore.ModeCar) {
			return false, false
		}
		return false, true
	default:
		return false, false
	}
}

func (r *StreetRouter) traversalTimeSeconds(c edgestore.Cursor, req *Request, walkBike bool) float64 {
	if walkBike && req.WalkSpeedMps > 0 {
		return float64(c.GetLengthMm()) / 1000.0 / req.WalkSpeedMps
	}
	return c.TraversalTimeSeconds()
}

func (r *StreetRouter) costFieldDelta(c edgestore.Cursor, req *Request) float64 {
	total := 0.0
	for name, weight := range req.CostFieldWeights {
		total += c.GetCostField(name) * weight
	}
	return total
}
