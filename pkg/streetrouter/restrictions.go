package streetrouter

import "github.com/azybler/streetrouter/pkg/edgestore"

// restrictionChecker evaluates turn-restriction legality against a fixed
// restriction table (either EdgeStore's forward table or its reversed
// table, depending on search direction) plus a predecessor lookup used to
// walk back through a multi-via sequence.
type restrictionChecker struct {
	restrictions []edgestore.TurnRestriction
	predecessor  func(edge int32) int32

	// byFrom maps a directed edge to the indices of restrictions that start
	// there (FromEdge == that edge), built via edgestore.EdgeStore's own
	// RestrictionsFrom index rather than a per-lookup linear scan: the
	// overwhelming majority of restrictions have no ViaEdges at all, so a
	// restriction can only ever be "entered" at FromEdge and this index
	// alone answers canTurnFrom for them in O(1).
	byFrom func(edge int32) []int32

	// viaRestrictions holds the indices of restrictions with at least one
	// ViaEdge, since currentEdge may match one of those mid-sequence rather
	// than FromEdge; this handful still needs a linear scan (byFrom can't
	// index an arbitrary via-edge position).
	viaRestrictions []int32
}

// newForwardRestrictionChecker builds a checker over es's own forward
// restriction table, using es.RestrictionsFrom directly as the byFrom
// lookup rather than re-deriving an equivalent index: es already maintains
// one, lazily built and cached on first use.
func newForwardRestrictionChecker(es *edgestore.EdgeStore, predecessor func(edge int32) int32) *restrictionChecker {
	return newRestrictionChecker(es.Restrictions(), es.RestrictionsFrom, predecessor)
}

// newReverseRestrictionChecker builds a checker over a reversed restriction
// table (StreetLayer.ReverseRestrictions' output), which is a plain slice
// with no EdgeStore behind it to maintain a cached index, so this builds its
// own byFrom lookup up front instead.
func newReverseRestrictionChecker(reversed []edgestore.TurnRestriction, predecessor func(edge int32) int32) *restrictionChecker {
	idx := make(map[int32][]int32, len(reversed))
	for i, r := range reversed {
		idx[r.FromEdge] = append(idx[r.FromEdge], int32(i))
	}
	byFrom := func(edge int32) []int32 { return idx[edge] }
	return newRestrictionChecker(reversed, byFrom, predecessor)
}

func newRestrictionChecker(restrictions []edgestore.TurnRestriction, byFrom func(edge int32) []int32, predecessor func(edge int32) int32) *restrictionChecker {
	var viaRestrictions []int32
	for i, r := range restrictions {
		if len(r.ViaEdges) > 0 {
			viaRestrictions = append(viaRestrictions, int32(i))
		}
	}
	return &restrictionChecker{
		restrictions:    restrictions,
		predecessor:     predecessor,
		byFrom:          byFrom,
		viaRestrictions: viaRestrictions,
	}
}

// candidatesFor returns the indices of every restriction that could possibly
// apply to a turn departing currentEdge: those starting at currentEdge
// (O(1) via byFrom) plus every restriction with via edges, since currentEdge
// may be a mid-sequence via edge rather than FromEdge.
func (rc *restrictionChecker) candidatesFor(currentEdge int32) []int32 {
	candidates := rc.byFrom(currentEdge)
	if len(rc.viaRestrictions) == 0 {
		return candidates
	}
	out := make([]int32, 0, len(candidates)+len(rc.viaRestrictions))
	out = append(out, candidates...)
	out = append(out, rc.viaRestrictions...)
	return out
}

// pathEndsWith reports whether walking backward from lastEdge through this
// search's predecessor chain reproduces want (oldest first), i.e. the
// traveler's most recent len(want) edges, including lastEdge, equal want in
// order.
func (rc *restrictionChecker) pathEndsWith(lastEdge int32, want []int32) bool {
	if len(want) == 0 {
		return true
	}
	cur := lastEdge
	for i := len(want) - 1; i >= 0; i-- {
		if cur != want[i] {
			return false
		}
		if i == 0 {
			return true
		}
		cur = rc.predecessor(cur)
		if cur == noEdge {
			return false
		}
	}
	return true
}

// canTurnFrom reports whether traveling currentEdge -> nextEdge is legal.
// currentEdge is the directed edge the search label is attached to (the
// most recent edge actually traversed, which may itself be partway through
// a via-edge restriction's sequence); the predecessor chain from
// currentEdge is consulted to resolve multi-via restrictions.
//
// Edges both flagged link (short synthetic connectors such as highway
// ramps split out of a single OSM way) are always connectable: a turn
// restriction was never meant to apply mid-ramp, only at the real
// intersection the ramp is serving.
func (rc *restrictionChecker) canTurnFrom(currentEdge, nextEdge int32, currentIsLink, nextIsLink bool) bool {
	if currentIsLink && nextIsLink {
		return true
	}

	candidates := rc.candidatesFor(currentEdge)

	for _, i := range candidates {
		r := rc.restrictions[i]
		if !r.Only {
			continue
		}
		// full is the restriction's mandated edge sequence, FromEdge
		// followed by every via edge; find which step of it currentEdge
		// just completed (there may be more than one if an edge repeats in
		// the sequence) and require nextEdge continue from there.
		full := make([]int32, 0, len(r.ViaEdges)+1)
		full = append(full, r.FromEdge)
		full = append(full, r.ViaEdges...)
		for pos, e := range full {
			if e != currentEdge {
				continue
			}
			if !rc.pathEndsWith(currentEdge, full[:pos+1]) {
				continue
			}
			required := r.ToEdge
			if pos+1 < len(full) {
				required = full[pos+1]
			}
			if nextEdge != required {
				return false
			}
		}
	}

	for _, i := range candidates {
		r := rc.restrictions[i]
		if r.Only {
			continue
		}
		if r.ToEdge != nextEdge {
			continue
		}
		want := make([]int32, 0, len(r.ViaEdges)+1)
		want = append(want, r.FromEdge)
		want = append(want, r.ViaEdges...)
		if !rc.pathEndsWith(currentEdge, want) {
			continue
		}
		return false
	}
	return true
}
