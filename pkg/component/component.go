// Package component finds and filters weakly-connected components in a
// street layer's vertex graph. Small disconnected fragments are common in
// OSM extracts (a service road clipped at the bbox boundary, a
// mapping error) and are worth dropping before routing ever sees them: a
// router cannot reach across them anyway, and every unreachable vertex is
// wasted memory and a wasted entry in the spatial index.
package component

// UnionFind is a disjoint-set structure with path halving and union by
// rank, used to discover which vertices share a weakly-connected component.
type UnionFind struct {
	parent []int32
	rank   []byte
	size   []int32
}

// NewUnionFind creates a UnionFind over n elements, each its own singleton
// set.
func NewUnionFind(n int32) *UnionFind {
	parent := make([]int32, n)
	size := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
		size[i] = 1
	}
	return &UnionFind{parent: parent, rank: make([]byte, n), size: size}
}

// Find returns the representative of the set containing x, path-halving
// along the way.
func (uf *UnionFind) Find(x int32) int32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y, returning false if they were
// already the same set.
func (uf *UnionFind) Union(x, y int32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the size of the set containing x.
func (uf *UnionFind) Size(x int32) int32 {
	return uf.size[uf.Find(x)]
}

// Components partitions a numVertices-vertex graph into weakly-connected
// components and returns the UnionFind over it. adjacentEdges(v) must
// return every directed edge departing v (as streetlayer.StreetLayer's
// AdjacentEdges does); toVertex(e) must resolve a directed edge to the
// vertex it arrives at. Passed as functions rather than an interface so
// this package has no import-time dependency on streetlayer.
func Components(numVertices int32, adjacentEdges func(v int32) []int32, toVertex func(e int32) int32) *UnionFind {
	uf := NewUnionFind(numVertices)
	for v := int32(0); v < numVertices; v++ {
		for _, e := range adjacentEdges(v) {
			uf.Union(v, toVertex(e))
		}
	}
	return uf
}

// KeepMinSize returns the set of vertices belonging to any component whose
// size is at least minSize, and the number of vertices dropped.
func KeepMinSize(uf *UnionFind, numVertices int32, minSize int32) (keep map[int32]bool, dropped int32) {
	keep = make(map[int32]bool, numVertices)
	for v := int32(0); v < numVertices; v++ {
		if uf.Size(v) >= minSize {
			keep[v] = true
		}
	}
	dropped = numVertices - int32(len(keep))
	return keep, dropped
}
