// Package edgestore is the column store of directed edges. Edges are always
// created in forward/backward pairs: pair p occupies directed-edge indices
// 2p (forward) and 2p+1 (backward). Columns that are identical in both
// directions (endpoints, length, geometry, OSM way id, street class) are
// stored once per pair; columns that differ by direction (permission/LTS
// flags, speed) are stored once per directed edge.
package edgestore

import (
	"fmt"
	"log"
	"sync"

	"github.com/azybler/streetrouter/pkg/colstore"
	"github.com/azybler/streetrouter/pkg/geo"
)

// PairIndex returns the edge pair that directed edge e belongs to.
func PairIndex(e int32) int32 { return e / 2 }

// IsBackward reports whether directed edge e is the backward member of its
// pair.
func IsBackward(e int32) bool { return e&1 != 0 }

// ForwardEdge returns the forward directed-edge index of pair p.
func ForwardEdge(p int32) int32 { return p * 2 }

// BackwardEdge returns the backward directed-edge index of pair p.
func BackwardEdge(p int32) int32 { return p*2 + 1 }

// emptyGeometry is interned and shared by every edge with no intermediate
// shape points, since the overwhelming majority of edges have none.
var emptyGeometry = []int32{}

// EdgeStore holds the pair-shared and per-direction columns for every edge,
// plus the turn-restriction table.
type EdgeStore struct {
	// Pair-shared columns, one entry per pair.
	fromVertex  *colstore.AppendOnlyView[int32]
	toVertex    *colstore.AppendOnlyView[int32]
	lengthMm    *colstore.AppendOnlyView[int32]
	osmWayID    *colstore.AppendOnlyView[int64]
	geomIdx     *colstore.AppendOnlyView[int32]
	inAngle     *colstore.AppendOnlyView[geo.Brad]
	outAngle    *colstore.AppendOnlyView[geo.Brad]
	streetClass *colstore.AppendOnlyView[StreetClass]

	// Per-direction columns, one entry per directed edge (2 per pair).
	flags *colstore.AppendOnlyView[Flag]
	speed *colstore.AppendOnlyView[int16] // meters/second * 100

	// Geometry: each pair's intermediate shape points (excluding the
	// endpoints, which live in VertexStore), packed as alternating fixed
	// lat/lon, stored forward-direction order.
	geometries *colstore.AppendOnlyView[[]int32]

	restrictions   []TurnRestriction
	synthWayIDNext int64

	// restrictionIndex caches RestrictionsFrom's by-edge lookup, built at
	// most once regardless of how many concurrent queries call it first:
	// many searches run concurrently against one frozen EdgeStore, so the
	// build itself must not race.
	restrictionIndex     map[int32][]int32
	restrictionIndexOnce sync.Once

	frozen bool

	costFields map[string]*colstore.AppendOnlyView[float32]
}

// New creates an empty EdgeStore ready for appends.
func New() *EdgeStore {
	return &EdgeStore{
		fromVertex:     colstore.New[int32](),
		toVertex:       colstore.New[int32](),
		lengthMm:       colstore.New[int32](),
		osmWayID:       colstore.New[int64](),
		geomIdx:        colstore.New[int32](),
		inAngle:        colstore.New[geo.Brad](),
		outAngle:       colstore.New[geo.Brad](),
		streetClass:    colstore.New[StreetClass](),
		flags:          colstore.New[Flag](),
		speed:          colstore.New[int16](),
		geometries:     colstore.New[[]int32](),
		synthWayIDNext: -1,
	}
}

// PairCount returns the number of edge pairs appended so far.
func (es *EdgeStore) PairCount() int {
	return es.fromVertex.Len()
}

// EdgeCount returns the number of directed edges (always 2*PairCount).
func (es *EdgeStore) EdgeCount() int {
	return es.flags.Len()
}

// nextSynthWayID returns a negative, decreasing id for edges with no
// corresponding OSM way (e.g. elevator/stair connectors synthesized during
// build), keeping them distinguishable from real OSM way ids.
func (es *EdgeStore) nextSynthWayID() int64 {
	id := es.synthWayIDNext
	es.synthWayIDNext--
	return id
}

// AddEdgePair appends a new forward/backward edge pair between fromVertex and
// toVertex, both already-valid indices into a VertexStore of size
// vertexCount. lengthMm is the pair's length in millimeters. If osmWayID is
// 0, a synthetic negative id is assigned. It returns the forward directed
// edge index (the backward index is always forward+1).
//
// fromVertex/toVertex out of [0,vertexCount) is a topology problem, not a
// programmer error: AddEdgePair logs a warning and returns (-1, err) so the
// caller can skip the edge and continue, per the error-handling design.
func (es *EdgeStore) AddEdgePair(fromVertex, toVertex int32, lengthMm int32, osmWayID int64, vertexCount int32) (int32, error) {
	if es.frozen {
		panic("edgestore: AddEdgePair on a frozen store")
	}
	if fromVertex < 0 || fromVertex >= vertexCount || toVertex < 0 || toVertex >= vertexCount {
		err := fmt.Errorf("edgestore: edge pair references vertex out of range [0,%d): from=%d to=%d", vertexCount, fromVertex, toVertex)
		log.Printf("dropping edge pair: %v", err)
		return -1, err
	}
	if lengthMm < 0 {
		err := fmt.Errorf("edgestore: negative edge length %d mm", lengthMm)
		log.Printf("dropping edge pair: %v", err)
		return -1, err
	}
	if osmWayID == 0 {
		osmWayID = es.nextSynthWayID()
	}

	pairIdx := es.fromVertex.Append(fromVertex)
	es.toVertex.Append(toVertex)
	es.lengthMm.Append(lengthMm)
	es.osmWayID.Append(osmWayID)
	es.geomIdx.Append(int32(es.geometries.Append(emptyGeometry)))
	es.inAngle.Append(0)
	es.outAngle.Append(0)
	es.streetClass.Append(StreetClassLocal)

	es.flags.Append(0)
	es.flags.Append(0)
	es.speed.Append(0)
	es.speed.Append(0)

	for _, col := range es.costFields {
		col.Append(0)
		col.Append(0)
	}

	return ForwardEdge(int32(pairIdx)), nil
}

// RegisterCostField declares a named, per-directed-edge additive cost
// column (e.g. a stress or elevation-gain penalty fed into the router's
// generalized-weight dominance variable). Values default to 0 and are set
// per edge via Cursor.SetCostField.
func (es *EdgeStore) RegisterCostField(name string) {
	if es.costFields == nil {
		es.costFields = make(map[string]*colstore.AppendOnlyView[float32])
	}
	if _, ok := es.costFields[name]; ok {
		return
	}
	col := colstore.New[float32]()
	for i := 0; i < es.EdgeCount(); i++ {
		col.Append(0)
	}
	es.costFields[name] = col
}

// CostFieldValue returns the named cost field's value for directed edge e,
// or 0 if the field was never registered.
func (es *EdgeStore) CostFieldValue(name string, e int32) float64 {
	col, ok := es.costFields[name]
	if !ok {
		return 0
	}
	return float64(col.Get(int(e)))
}

// Freeze marks the store read-only.
func (es *EdgeStore) Freeze() {
	es.frozen = true
}

// Extend returns a new EdgeStore that is an extend-only copy of es.
func (es *EdgeStore) Extend() *EdgeStore {
	costFields := make(map[string]*colstore.AppendOnlyView[float32], len(es.costFields))
	for name, col := range es.costFields {
		costFields[name] = col.ExtendOnlyCopy()
	}
	restrictions := make([]TurnRestriction, len(es.restrictions))
	copy(restrictions, es.restrictions)
	return &EdgeStore{
		fromVertex:     es.fromVertex.ExtendOnlyCopy(),
		toVertex:       es.toVertex.ExtendOnlyCopy(),
		lengthMm:       es.lengthMm.ExtendOnlyCopy(),
		osmWayID:       es.osmWayID.ExtendOnlyCopy(),
		geomIdx:        es.geomIdx.ExtendOnlyCopy(),
		inAngle:        es.inAngle.ExtendOnlyCopy(),
		outAngle:       es.outAngle.ExtendOnlyCopy(),
		streetClass:    es.streetClass.ExtendOnlyCopy(),
		flags:          es.flags.ExtendOnlyCopy(),
		speed:          es.speed.ExtendOnlyCopy(),
		geometries:     es.geometries.ExtendOnlyCopy(),
		restrictions:   restrictions,
		synthWayIDNext: es.synthWayIDNext,
		costFields:     costFields,
	}
}

// IsExtendOnlyCopy reports whether this store wraps a frozen baseline.
func (es *EdgeStore) IsExtendOnlyCopy() bool {
	return es.fromVertex.IsExtendOnlyCopy()
}

// Cursor is a cheap, thread-local view onto one directed edge.
type Cursor struct {
	store *EdgeStore
	edge  int32
}

// At returns a cursor on directed edge e without range-checking it.
func (es *EdgeStore) At(e int32) Cursor {
	return Cursor{store: es, edge: e}
}

// Edge returns the directed edge index this cursor points at.
func (c Cursor) Edge() int32 { return c.edge }

// Pair returns the edge-pair index this cursor's edge belongs to.
func (c Cursor) Pair() int32 { return PairIndex(c.edge) }

// IsBackward reports whether this cursor is on the backward member of its
// pair.
func (c Cursor) IsBackward() bool { return IsBackward(c.edge) }

// Reverse returns a cursor on the other directed edge of the same pair.
func (c Cursor) Reverse() Cursor { return Cursor{store: c.store, edge: c.edge ^ 1} }

func (c Cursor) pairIdx() int { return int(PairIndex(c.edge)) }

// GetFromVertex returns the vertex this directed edge departs from: the
// pair's fromVertex when traveling forward, its toVertex when traveling
// backward.
func (c Cursor) GetFromVertex() int32 {
	if c.IsBackward() {
		return c.store.toVertex.Get(c.pairIdx())
	}
	return c.store.fromVertex.Get(c.pairIdx())
}

// GetToVertex returns the vertex this directed edge arrives at.
func (c Cursor) GetToVertex() int32 {
	if c.IsBackward() {
		return c.store.fromVertex.Get(c.pairIdx())
	}
	return c.store.toVertex.Get(c.pairIdx())
}

// SetToVertex rewrites the pair's endpoint shared by both directions — used
// when splitting an edge at a new vertex, which shortens this directed
// edge's destination (and symmetrically its reverse's origin) without
// touching the other directed edge of the split.
func (c Cursor) SetToVertex(v int32) {
	if c.IsBackward() {
		must(c.store.fromVertex.Set(c.pairIdx(), v))
		return
	}
	must(c.store.toVertex.Set(c.pairIdx(), v))
}

// GetLengthMm returns the edge's length in millimeters (direction-agnostic).
func (c Cursor) GetLengthMm() int32 {
	return c.store.lengthMm.Get(c.pairIdx())
}

// SetLengthMm overwrites the edge's length.
func (c Cursor) SetLengthMm(mm int32) {
	must(c.store.lengthMm.Set(c.pairIdx(), mm))
}

// GetOSMWayID returns the OSM way id this edge pair was derived from, or a
// negative synthetic id for edges with no OSM origin.
func (c Cursor) GetOSMWayID() int64 {
	return c.store.osmWayID.Get(c.pairIdx())
}

// GetStreetClass returns the edge's street class.
func (c Cursor) GetStreetClass() StreetClass {
	return c.store.streetClass.Get(c.pairIdx())
}

// SetStreetClass overwrites the edge's street class.
func (c Cursor) SetStreetClass(sc StreetClass) {
	must(c.store.streetClass.Set(c.pairIdx(), sc))
}

// GetFlags returns this directed edge's flag word.
func (c Cursor) GetFlags() Flag {
	return c.store.flags.Get(int(c.edge))
}

// SetFlag sets flag f on this directed edge.
func (c Cursor) SetFlag(f Flag) {
	cur := c.store.flags.Get(int(c.edge))
	must(c.store.flags.Set(int(c.edge), cur|f))
}

// ClearFlag clears flag f on this directed edge.
func (c Cursor) ClearFlag(f Flag) {
	cur := c.store.flags.Get(int(c.edge))
	must(c.store.flags.Set(int(c.edge), cur&^f))
}

// HasFlag reports whether f is set on this directed edge.
func (c Cursor) HasFlag(f Flag) bool {
	return c.store.flags.Get(int(c.edge))&f != 0
}

// AllowsMode reports whether this directed edge permits traversal by mode.
func (c Cursor) AllowsMode(mode StreetMode) bool {
	return AllowsMode(c.GetFlags(), mode)
}

// LTS returns this directed edge's bike level-of-traffic-stress, 0 if
// unclassified.
func (c Cursor) LTS() int {
	return LTS(c.GetFlags())
}

// SetLTS sets this directed edge's bike level-of-traffic-stress.
func (c Cursor) SetLTS(level int, explicit bool) {
	must(c.store.flags.Set(int(c.edge), WithLTS(c.GetFlags(), level, explicit)))
}

// GetSpeedMetersPerSecond returns this directed edge's free-flow speed.
func (c Cursor) GetSpeedMetersPerSecond() float64 {
	return float64(c.store.speed.Get(int(c.edge))) / 100.0
}

// SetSpeed sets this directed edge's free-flow speed in meters/second.
func (c Cursor) SetSpeed(metersPerSecond float64) {
	must(c.store.speed.Set(int(c.edge), int16(metersPerSecond*100.0+0.5)))
}

// TraversalTimeSeconds returns how long this directed edge takes to
// traverse at its stored free-flow speed. An edge with a zero speed (not
// yet labeled) takes 0 seconds rather than dividing by zero; callers that
// care treat that as "unusable" via AllowsMode instead.
func (c Cursor) TraversalTimeSeconds() float64 {
	speed := c.GetSpeedMetersPerSecond()
	if speed <= 0 {
		return 0
	}
	return float64(c.GetLengthMm()) / 1000.0 / speed
}

// GetCostField returns the named additive cost field's value for this
// directed edge.
func (c Cursor) GetCostField(name string) float64 {
	return c.store.CostFieldValue(name, c.edge)
}

// SetCostField sets the named additive cost field's value for this directed
// edge. The field must already be registered via EdgeStore.RegisterCostField.
func (c Cursor) SetCostField(name string, value float64) {
	col, ok := c.store.costFields[name]
	if !ok {
		panic(fmt.Sprintf("edgestore: cost field %q was never registered", name))
	}
	must(col.Set(int(c.edge), float32(value)))
}

// GetGeometry returns the intermediate shape points (excluding endpoints) as
// fixed-point lat/lon pairs, in the direction of travel: reversed relative
// to storage order when this cursor is on the backward edge.
func (c Cursor) GetGeometry() []int32 {
	raw := c.store.geometries.Get(int(c.store.geomIdx.Get(c.pairIdx())))
	if !c.IsBackward() || len(raw) == 0 {
		out := make([]int32, len(raw))
		copy(out, raw)
		return out
	}
	out := make([]int32, len(raw))
	n := len(raw) / 2
	for i := 0; i < n; i++ {
		src := n - 1 - i
		out[i*2] = raw[src*2]
		out[i*2+1] = raw[src*2+1]
	}
	return out
}

// SetGeometry overwrites the pair's intermediate shape points. points is
// stored in forward-direction order regardless of which directed edge this
// cursor points at; pass points already oriented start-to-end of the
// forward edge.
func (c Cursor) SetGeometry(points []int32) {
	var stored []int32 = emptyGeometry
	if len(points) > 0 {
		stored = make([]int32, len(points))
		copy(stored, points)
	}
	idx := int32(c.store.geometries.Append(stored))
	must(c.store.geomIdx.Set(c.pairIdx(), idx))
}

// ForEachPoint calls fn for every point along this directed edge in travel
// order: the origin vertex, each intermediate shape point, then the
// destination vertex. Endpoint coordinates must be supplied by the caller
// (via a VertexStore lookup) since EdgeStore doesn't hold vertex
// coordinates itself.
func (c Cursor) ForEachPoint(fromLat, fromLon, toLat, toLon int32, fn func(fixedLat, fixedLon int32)) {
	fn(fromLat, fromLon)
	geom := c.GetGeometry()
	for i := 0; i+1 < len(geom); i += 2 {
		fn(geom[i], geom[i+1])
	}
	fn(toLat, toLon)
}

// ForEachSegment calls fn for every straight sub-segment of this directed
// edge in travel order, each identified by its 0-based segment index
// (0 is the segment leaving the origin vertex).
func (c Cursor) ForEachSegment(fromLat, fromLon, toLat, toLon int32, fn func(segIdx int, aLat, aLon, bLat, bLon int32)) {
	prevLat, prevLon := fromLat, fromLon
	seg := 0
	geom := c.GetGeometry()
	for i := 0; i+1 < len(geom); i += 2 {
		fn(seg, prevLat, prevLon, geom[i], geom[i+1])
		prevLat, prevLon = geom[i], geom[i+1]
		seg++
	}
	fn(seg, prevLat, prevLon, toLat, toLon)
}

// GetEnvelope returns the fixed-point bounding envelope of this edge's full
// shape, including endpoints.
func (c Cursor) GetEnvelope(fromLat, fromLon, toLat, toLon int32) geo.Envelope {
	env := geo.EnvelopeFromPoint(fromLat, fromLon)
	env = env.ExpandToInclude(toLat, toLon)
	geom := c.GetGeometry()
	for i := 0; i+1 < len(geom); i += 2 {
		env = env.ExpandToInclude(geom[i], geom[i+1])
	}
	return env
}

// oppositeBrad returns the bearing pointing the opposite way: b rotated by
// half a turn (128 of 256 units), via unsigned wraparound.
func oppositeBrad(b geo.Brad) geo.Brad {
	return geo.Brad(int8(uint8(b) + 128))
}

// GetInAngle returns the bearing of travel on arrival at this directed
// edge's destination vertex, as derived by CalculateAngles.
func (c Cursor) GetInAngle() geo.Brad {
	if c.IsBackward() {
		return oppositeBrad(c.store.outAngle.Get(c.pairIdx()))
	}
	return c.store.inAngle.Get(c.pairIdx())
}

// GetOutAngle returns the bearing of travel on departure from this directed
// edge's origin vertex.
func (c Cursor) GetOutAngle() geo.Brad {
	if c.IsBackward() {
		return oppositeBrad(c.store.inAngle.Get(c.pairIdx()))
	}
	return c.store.outAngle.Get(c.pairIdx())
}

// minBearingSamplingMm is the target distance along the edge's shape used to
// sample the in/out bearing, matching the "measured at >= 10m along the
// line when possible" rule: short edges fall back to the endpoint-to-
// endpoint bearing.
const minBearingSamplingMm = 10_000

// CalculateAngles derives and stores the forward edge's departure and
// arrival bearings from its endpoint coordinates and intermediate shape
// points. Call after SetGeometry (or immediately for edges with no
// geometry) and whenever the geometry changes.
func (c Cursor) CalculateAngles(fromLat, fromLon, toLat, toLon int32) {
	fwd := c
	if c.IsBackward() {
		fwd = c.Reverse()
	}
	geomFlat := fwd.store.geometries.Get(int(fwd.store.geomIdx.Get(fwd.pairIdx())))

	out := bearingAtStart(fromLat, fromLon, toLat, toLon, geomFlat)
	in := bearingAtEnd(fromLat, fromLon, toLat, toLon, geomFlat)
	must(fwd.store.outAngle.Set(fwd.pairIdx(), geo.BradFromBearing(out)))
	must(fwd.store.inAngle.Set(fwd.pairIdx(), geo.BradFromBearing(in)))
}

func bearingAtStart(fromLat, fromLon, toLat, toLon int32, geomFlat []int32) float64 {
	aLat, aLon := geo.ToFloat(fromLat), geo.ToFloat(fromLon)
	prevLat, prevLon := fromLat, fromLon
	for i := 0; i+1 < len(geomFlat); i += 2 {
		if mmBetween(prevLat, prevLon, geomFlat[i], geomFlat[i+1]) >= minBearingSamplingMm {
			return geo.Bearing(aLat, aLon, geo.ToFloat(geomFlat[i]), geo.ToFloat(geomFlat[i+1]))
		}
		prevLat, prevLon = geomFlat[i], geomFlat[i+1]
	}
	if mmBetween(fromLat, fromLon, toLat, toLon) > 0 {
		return geo.Bearing(aLat, aLon, geo.ToFloat(toLat), geo.ToFloat(toLon))
	}
	return geo.Bearing(aLat, aLon, geo.ToFloat(prevLat), geo.ToFloat(prevLon))
}

func bearingAtEnd(fromLat, fromLon, toLat, toLon int32, geomFlat []int32) float64 {
	bLat, bLon := geo.ToFloat(toLat), geo.ToFloat(toLon)
	nextLat, nextLon := toLat, toLon
	for i := len(geomFlat) - 2; i >= 0; i -= 2 {
		if mmBetween(geomFlat[i], geomFlat[i+1], nextLat, nextLon) >= minBearingSamplingMm {
			return geo.Bearing(geo.ToFloat(geomFlat[i]), geo.ToFloat(geomFlat[i+1]), bLat, bLon)
		}
		nextLat, nextLon = geomFlat[i], geomFlat[i+1]
	}
	return geo.Bearing(geo.ToFloat(fromLat), geo.ToFloat(fromLon), bLat, bLon)
}

func mmBetween(aLat, aLon, bLat, bLon int32) float64 {
	return geo.EquirectangularDist(geo.ToFloat(aLat), geo.ToFloat(aLon), geo.ToFloat(bLat), geo.ToFloat(bLon)) * 1000.0
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
