package edgestore

import (
	"log"
	"sync"
)

// TurnRestriction forbids (or, if Only is true, mandates) turning from
// FromEdge onto ToEdge, optionally via one or more intermediate directed
// edges for restrictions that span more than one intersection (OSM
// "restriction:<type>" relations with multiple via ways/nodes). All edges
// are directed-edge indices, already resolved to the direction the
// restriction applies to.
type TurnRestriction struct {
	FromEdge int32
	ToEdge   int32
	ViaEdges []int32
	Only     bool
}

// reverseDirectedEdge flips a directed edge to the opposite member of its
// pair. Reversing a turn restriction for the reverse-search table assumes
// each via edge's pair is direction-symmetric (the physical street segment
// can be traveled both ways); this holds for the overwhelming majority of
// via edges but is not checked here — see the design notes on reversing
// via-edge restrictions.
func reverseDirectedEdge(e int32) int32 { return e ^ 1 }

// Reverse returns the structural reversal of r: the restriction that
// applies when traveling the same physical path in the opposite direction.
// FromEdge and ToEdge swap (each flipped to its reverse directed edge) and
// ViaEdges reverses order (each entry also flipped). Only is preserved, so
// Reverse is its own inverse: r.Reverse().Reverse() equals r.
func (r TurnRestriction) Reverse() TurnRestriction {
	via := make([]int32, len(r.ViaEdges))
	for i, e := range r.ViaEdges {
		via[len(via)-1-i] = reverseDirectedEdge(e)
	}
	return TurnRestriction{
		FromEdge: reverseDirectedEdge(r.ToEdge),
		ToEdge:   reverseDirectedEdge(r.FromEdge),
		ViaEdges: via,
		Only:     r.Only,
	}
}

// AddTurnRestriction appends a turn restriction. FromEdge/ToEdge/ViaEdges
// referencing an out-of-range directed edge is a topology problem: the
// restriction is dropped with a warning rather than failing the whole
// build, per the error-handling design. It returns the new restriction's
// index, or -1 if dropped.
func (es *EdgeStore) AddTurnRestriction(r TurnRestriction) int32 {
	n := int32(es.EdgeCount())
	valid := func(e int32) bool { return e >= 0 && e < n }
	if !valid(r.FromEdge) || !valid(r.ToEdge) {
		logDroppedRestriction(r, "from/to edge out of range")
		return -1
	}
	for _, via := range r.ViaEdges {
		if !valid(via) {
			logDroppedRestriction(r, "via edge out of range")
			return -1
		}
	}
	es.restrictions = append(es.restrictions, r)
	// A restriction added after RestrictionsFrom has already built its
	// cache (build-time only; never races with a concurrent query since
	// queries only run against a frozen store) needs a fresh Once so the
	// next call rebuilds rather than reading the stale map.
	es.restrictionIndex = nil
	es.restrictionIndexOnce = sync.Once{}
	return int32(len(es.restrictions) - 1)
}

func logDroppedRestriction(r TurnRestriction, reason string) {
	log.Printf("dropping turn restriction from=%d to=%d via=%v: %s", r.FromEdge, r.ToEdge, r.ViaEdges, reason)
}

// Restrictions returns every turn restriction in forward-search orientation
// (as added). The returned slice must not be modified.
func (es *EdgeStore) Restrictions() []TurnRestriction {
	return es.restrictions
}

// RestrictionsFrom returns the indices (into Restrictions) of every
// restriction whose FromEdge is e, for forward-search consultation at each
// edge expansion. Many searches call this concurrently against one frozen
// EdgeStore, so the first call builds the index exactly once via
// restrictionIndexOnce; every other caller, racing or not, blocks until
// that build finishes and then reads the completed map.
func (es *EdgeStore) RestrictionsFrom(e int32) []int32 {
	es.restrictionIndexOnce.Do(es.buildRestrictionIndex)
	return es.restrictionIndex[e]
}

// Structural reversal for a reverse search's restriction table lives on
// StreetLayer (streetlayer.ReverseRestrictions), not here: expanding an
// "only" restriction into its equivalent "no" restrictions requires walking
// graph adjacency, which EdgeStore alone doesn't have.

func (es *EdgeStore) buildRestrictionIndex() {
	es.restrictionIndex = make(map[int32][]int32, len(es.restrictions))
	for i, r := range es.restrictions {
		es.restrictionIndex[r.FromEdge] = append(es.restrictionIndex[r.FromEdge], int32(i))
	}
}
