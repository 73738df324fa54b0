// Package vertexstore is the column store of graph vertices: fixed-point
// coordinates plus a small per-vertex flag bitset. Vertices are append-only
// and keep their index for the life of the StreetLayer.
package vertexstore

import (
	"fmt"

	"github.com/azybler/streetrouter/pkg/colstore"
	"github.com/azybler/streetrouter/pkg/geo"
)

// Flag is a bit in the per-vertex flag word.
type Flag uint8

const (
	FlagTrafficSignal Flag = 1 << iota
	FlagParkAndRide
	FlagBikeShare
)

// VertexStore holds parallel columns for every vertex.
type VertexStore struct {
	fixedLat *colstore.AppendOnlyView[int32]
	fixedLon *colstore.AppendOnlyView[int32]
	flags    *colstore.AppendOnlyView[Flag]
	frozen   bool
}

// New creates an empty VertexStore ready for appends.
func New() *VertexStore {
	return &VertexStore{
		fixedLat: colstore.New[int32](),
		fixedLon: colstore.New[int32](),
		flags:    colstore.New[Flag](),
	}
}

// Size returns the number of vertices appended so far.
func (vs *VertexStore) Size() int {
	return vs.fixedLat.Len()
}

// AddVertex appends a vertex at the given floating-point coordinates and
// returns its permanent index.
func (vs *VertexStore) AddVertex(lat, lon float64) int32 {
	return vs.AddVertexFixed(geo.ToFixed(lat), geo.ToFixed(lon))
}

// AddVertexFixed appends a vertex at fixed-point coordinates.
func (vs *VertexStore) AddVertexFixed(fixedLat, fixedLon int32) int32 {
	if vs.frozen {
		panic("vertexstore: AddVertex on a frozen store")
	}
	idx := vs.fixedLat.Append(fixedLat)
	vs.fixedLon.Append(fixedLon)
	vs.flags.Append(0)
	return int32(idx)
}

// Freeze marks the store read-only. Further appends panic; this is a
// programmer error per the error-handling design, not a data-quality issue.
func (vs *VertexStore) Freeze() {
	vs.frozen = true
}

// Extend returns a new VertexStore that is an extend-only copy of vs:
// existing vertices are shared read-only, and new vertices may be appended
// to the copy without affecting vs or any other copy of it.
func (vs *VertexStore) Extend() *VertexStore {
	return &VertexStore{
		fixedLat: vs.fixedLat.ExtendOnlyCopy(),
		fixedLon: vs.fixedLon.ExtendOnlyCopy(),
		flags:    vs.flags.ExtendOnlyCopy(),
	}
}

// IsExtendOnlyCopy reports whether this store wraps a frozen baseline.
func (vs *VertexStore) IsExtendOnlyCopy() bool {
	return vs.fixedLat.IsExtendOnlyCopy()
}

// checkIndex validates a vertex index is in range, returning a resolution
// error (not a panic) since callers such as addEdgePair treat out-of-range
// vertices as a data-quality problem to skip and log, per the error design.
func (vs *VertexStore) checkIndex(idx int32) error {
	if idx < 0 || int(idx) >= vs.Size() {
		return fmt.Errorf("vertexstore: index %d out of range [0,%d)", idx, vs.Size())
	}
	return nil
}

// Cursor is a cheap, thread-local view onto a single vertex. It borrows the
// store and never escapes a goroutine.
type Cursor struct {
	store *VertexStore
	idx   int32
}

// At returns a cursor on vertex idx without validating idx is in range; use
// together with checkIndex/CursorChecked at trust boundaries.
func (vs *VertexStore) At(idx int32) Cursor {
	return Cursor{store: vs, idx: idx}
}

// CursorChecked returns a cursor on idx, or an error if idx is out of range.
func (vs *VertexStore) CursorChecked(idx int32) (Cursor, error) {
	if err := vs.checkIndex(idx); err != nil {
		return Cursor{}, err
	}
	return Cursor{store: vs, idx: idx}, nil
}

// Index returns the vertex index this cursor points at.
func (c Cursor) Index() int32 { return c.idx }

// FixedLat returns the latitude in fixed-point degrees (deg * 1e7).
func (c Cursor) FixedLat() int32 { return c.store.fixedLat.Get(int(c.idx)) }

// FixedLon returns the longitude in fixed-point degrees.
func (c Cursor) FixedLon() int32 { return c.store.fixedLon.Get(int(c.idx)) }

// Lat returns the latitude in floating-point degrees.
func (c Cursor) Lat() float64 { return geo.ToFloat(c.FixedLat()) }

// Lon returns the longitude in floating-point degrees.
func (c Cursor) Lon() float64 { return geo.ToFloat(c.FixedLon()) }

// HasFlag reports whether f is set on this vertex.
func (c Cursor) HasFlag(f Flag) bool {
	return c.store.flags.Get(int(c.idx))&f != 0
}

// Flags returns this vertex's raw flag word, for bulk inspection (e.g.
// serialization) rather than testing one bit at a time.
func (c Cursor) Flags() Flag {
	return c.store.flags.Get(int(c.idx))
}

// SetFlag sets flag f on this vertex.
func (c Cursor) SetFlag(f Flag) {
	cur := c.store.flags.Get(int(c.idx))
	if err := c.store.flags.Set(int(c.idx), cur|f); err != nil {
		panic(err)
	}
}

// ClearFlag clears flag f on this vertex.
func (c Cursor) ClearFlag(f Flag) {
	cur := c.store.flags.Get(int(c.idx))
	if err := c.store.flags.Set(int(c.idx), cur&^f); err != nil {
		panic(err)
	}
}
