// Package colstore provides the append-only column abstraction that backs
// every parallel array in VertexStore and EdgeStore. A single AppendOnlyView
// plays two roles with no code difference between them: while a StreetLayer
// is being built, every index is an appended index (there is no base slice
// yet); once frozen and extended into a scenario, indices below
// FirstModifiable resolve to the shared, read-only baseline slice and writes
// to them are rejected.
package colstore

import "errors"

// ErrBaseImmutable is returned by Set when the target index falls in the
// read-only base region of an extend-only copy.
var ErrBaseImmutable = errors.New("colstore: index is in the immutable base region")

// AppendOnlyView is a column backed by a chain of shared, read-only base
// segments plus a private extension slice. Indices [0, FirstModifiable)
// resolve into the base segments (oldest first); indices [FirstModifiable,
// Len) resolve to ext. Extending a view never copies a base segment's
// backing array — it only appends a reference to the parent's ext slice as a
// new, now-frozen segment — so a scenario's column is O(1) to create
// regardless of how large the baseline is.
type AppendOnlyView[T any] struct {
	segments [][]T // shared, read-only; never mutated once referenced by a child
	baseLen  int   // cached sum of len(segments[i]), i.e. FirstModifiable
	ext      []T
}

// New returns an empty view with no base region: every append lands in ext
// and every index is modifiable. This is the state a column starts in
// while a baseline StreetLayer is under construction.
func New[T any]() *AppendOnlyView[T] {
	return &AppendOnlyView[T]{}
}

// Len returns the total number of elements across every base segment and ext.
func (v *AppendOnlyView[T]) Len() int {
	return v.baseLen + len(v.ext)
}

// FirstModifiable returns the index of the first element that is not part of
// the frozen base region. A value > 0 means this view is an extend-only
// copy of some other view.
func (v *AppendOnlyView[T]) FirstModifiable() int {
	return v.baseLen
}

// IsExtendOnlyCopy reports whether this view wraps a non-empty frozen base.
func (v *AppendOnlyView[T]) IsExtendOnlyCopy() bool {
	return v.FirstModifiable() > 0
}

// Get returns the element at i, panicking if i is out of range exactly as a
// plain slice index would.
func (v *AppendOnlyView[T]) Get(i int) T {
	if i >= v.baseLen {
		return v.ext[i-v.baseLen]
	}
	for _, seg := range v.segments {
		if i < len(seg) {
			return seg[i]
		}
		i -= len(seg)
	}
	panic("colstore: index out of range")
}

// Set overwrites the element at i. It fails if i falls in the immutable base
// region; this is the only error path colstore exposes, and callers that
// know i is always >= FirstModifiable (the common case: mutating a cursor
// just appended) may ignore it.
func (v *AppendOnlyView[T]) Set(i int, val T) error {
	if i < v.baseLen {
		return ErrBaseImmutable
	}
	v.ext[i-v.baseLen] = val
	return nil
}

// Append adds val past the current end and returns its new index.
func (v *AppendOnlyView[T]) Append(val T) int {
	idx := v.Len()
	v.ext = append(v.ext, val)
	return idx
}

// ExtendOnlyCopy returns a new view that shares every existing element with
// v — no element is copied — and starts with an empty, private ext of its
// own. v's own segments are reused by reference; if v has accumulated any
// ext of its own, that slice is appended as one more read-only segment (it
// must not be mutated further by v after this call, which holds in practice
// since Extend is only ever called on a frozen baseline). This is the
// scenario overlay primitive described in the design notes: O(1) regardless
// of baseline size, and callers of v are unaffected by appends to the copy.
func (v *AppendOnlyView[T]) ExtendOnlyCopy() *AppendOnlyView[T] {
	segments := v.segments
	if len(v.ext) > 0 {
		segments = make([][]T, len(v.segments), len(v.segments)+1)
		copy(segments, v.segments)
		segments = append(segments, v.ext)
	}
	return &AppendOnlyView[T]{segments: segments, baseLen: v.Len()}
}

// ForEach calls fn for every element in order.
func (v *AppendOnlyView[T]) ForEach(fn func(i int, val T)) {
	i := 0
	for _, seg := range v.segments {
		for _, val := range seg {
			fn(i, val)
			i++
		}
	}
	for _, val := range v.ext {
		fn(i, val)
		i++
	}
}
