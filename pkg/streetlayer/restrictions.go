package streetlayer

import "github.com/azybler/streetrouter/pkg/edgestore"

// ExpandOnlyRestrictions rewrites every "only" restriction in rs into an
// equivalent set of "no" restrictions, using this layer's adjacency to
// enumerate the alternatives being forbidden: "from FromEdge, the only
// legal continuation is ToEdge (via ViaEdges)" is the same constraint as
// "from FromEdge, every other edge departing the same vertex is forbidden",
// expressed one "no" restriction per alternative. Plain "no" restrictions
// pass through unchanged.
func (sl *StreetLayer) ExpandOnlyRestrictions(rs []edgestore.TurnRestriction) []edgestore.TurnRestriction {
	out := make([]edgestore.TurnRestriction, 0, len(rs))
	for _, r := range rs {
		if !r.Only {
			out = append(out, r)
			continue
		}
		out = append(out, sl.expandOnlyRestriction(r)...)
	}
	return out
}

// expandOnlyRestriction produces the "no" restrictions forbidding every
// alternative at each branch point along r's mandated path: first at the
// vertex FromEdge arrives at (alternatives to the path's first step), then
// at the vertex each via edge arrives at (alternatives to the next step).
func (sl *StreetLayer) expandOnlyRestriction(r edgestore.TurnRestriction) []edgestore.TurnRestriction {
	path := make([]int32, 0, len(r.ViaEdges)+1)
	path = append(path, r.FromEdge)
	path = append(path, r.ViaEdges...)

	var out []edgestore.TurnRestriction
	for i, branchEdge := range path {
		required := r.ToEdge
		if i+1 < len(path) {
			required = path[i+1]
		}
		vertex := sl.Edges.At(branchEdge).GetToVertex()
		for _, alt := range sl.AdjacentEdges(vertex) {
			if alt == required || alt == branchEdge^1 {
				continue // the mandated step, or an immediate U-turn back
			}
			out = append(out, edgestore.TurnRestriction{
				FromEdge: path[0],
				ToEdge:   alt,
				ViaEdges: append([]int32(nil), path[1:i+1]...),
				Only:     false,
			})
		}
	}
	return out
}

// ReverseRestrictions returns the turn-restriction table to consult during
// a reverse search: every restriction with "only" pre-expanded into "no"
// restrictions (a reverse search only ever needs yes/no turn legality, and
// an "only" restriction reversed in place would wrongly read as mandatory
// from the destination side), then each remaining restriction structurally
// reversed.
func (sl *StreetLayer) ReverseRestrictions() []edgestore.TurnRestriction {
	expanded := sl.ExpandOnlyRestrictions(sl.Edges.Restrictions())
	out := make([]edgestore.TurnRestriction, len(expanded))
	for i, r := range expanded {
		out[i] = r.Reverse()
	}
	return out
}
