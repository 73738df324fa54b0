// Package streetrouter implements the label-correcting search at the heart
// of a StreetLayer: a Dijkstra-style search keyed per directed edge rather
// than per vertex, so that turn costs and multi-edge turn restrictions are
// respected without the spurious dominance a vertex-keyed search would
// produce (two different arrivals at the same vertex via different
// incoming edges can be genuinely incomparable once the next turn's
// legality depends on which edge you arrived on).
package streetrouter

import "math"

// DominanceVariable selects which quantity the search minimizes and uses to
// decide whether one arrival at a directed edge dominates another.
type DominanceVariable int

const (
	// DominanceTimeSeconds minimizes elapsed travel time.
	DominanceTimeSeconds DominanceVariable = iota
	// DominanceWeight minimizes a generalized weight combining time with
	// registered additive cost fields (stress, discomfort, etc).
	DominanceWeight
	// DominanceDistanceMm minimizes physical distance traveled.
	DominanceDistanceMm
)

// infinite is the sentinel "unreached" value for every dominance variable;
// all are monotonically increasing non-negative quantities so float64
// math.Inf(1) is a safe sentinel across every DominanceVariable.
var infinite = math.Inf(1)

// edgeState is the label attached to one directed edge during a search: the
// best known value to reach the network at that edge, the predecessor edge
// that achieved it (noEdge if this is an origin), and whether it has been
// popped off the frontier and finalized.
type edgeState struct {
	value       float64
	timeSeconds float64
	distanceMm  int64
	predEdge    int32
	settled     bool
}

// noEdge marks a state with no predecessor (an origin).
const noEdge int32 = -1

// State is one search's working memory: per-directed-edge labels plus the
// sparse touched-list needed to reset it in O(touched) between queries
// instead of O(network size), matching the pattern used throughout the
// corpus's pathfinding code.
type State struct {
	labels  map[int32]*edgeState
	touched []int32
	queue   *priorityQueue

	dominance DominanceVariable
}

// NewState creates a fresh, empty search state for the given dominance
// variable. Callers that run many searches against the same layer should
// pool States (via sync.Pool) and call Reset between uses instead of
// allocating a new one each time.
func NewState(dominance DominanceVariable) *State {
	return &State{
		labels:    make(map[int32]*edgeState),
		queue:     newPriorityQueue(),
		dominance: dominance,
	}
}

// Reset clears every touched label and empties the queue in O(touched)
// time, readying the state for another search without discarding its
// backing storage.
func (s *State) Reset() {
	for _, e := range s.touched {
		delete(s.labels, e)
	}
	s.touched = s.touched[:0]
	s.queue.reset()
}

func (s *State) get(edge int32) (*edgeState, bool) {
	st, ok := s.labels[edge]
	return st, ok
}

// touch records or updates the label for edge and pushes it onto the
// priority queue at its current value. It does not check dominance; callers
// compare the new value against valueOf first.
func (s *State) touch(edge int32, value, timeSeconds float64, distanceMm int64, pred int32) {
	st, existed := s.labels[edge]
	if !existed {
		st = &edgeState{}
		s.labels[edge] = st
		s.touched = append(s.touched, edge)
	}
	st.value = value
	st.timeSeconds = timeSeconds
	st.distanceMm = distanceMm
	st.predEdge = pred
	st.settled = false
	s.queue.push(edge, value)
}

// valueOf returns edge's current best value, or +Inf if unreached.
func (s *State) valueOf(edge int32) float64 {
	if st, ok := s.labels[edge]; ok {
		return st.value
	}
	return infinite
}

// PredecessorEdge returns the directed edge that led to edge in the best
// known path, or noEdge if edge is unreached or an origin.
func (s *State) PredecessorEdge(edge int32) int32 {
	if st, ok := s.labels[edge]; ok {
		return st.predEdge
	}
	return noEdge
}

// ValueAt returns the best known value (in the search's dominance variable)
// to reach edge, or +Inf if unreached.
func (s *State) ValueAt(edge int32) float64 {
	return s.valueOf(edge)
}

// TimeSecondsAt returns the best known elapsed travel time to reach edge.
func (s *State) TimeSecondsAt(edge int32) float64 {
	if st, ok := s.labels[edge]; ok {
		return st.timeSeconds
	}
	return infinite
}

// DistanceMmAt returns the best known distance traveled to reach edge.
func (s *State) DistanceMmAt(edge int32) int64 {
	if st, ok := s.labels[edge]; ok {
		return st.distanceMm
	}
	return math.MaxInt64
}

// Reached reports whether edge has been assigned a finite value.
func (s *State) Reached(edge int32) bool {
	_, ok := s.labels[edge]
	return ok
}
