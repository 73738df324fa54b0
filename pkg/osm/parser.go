// Package osm is the OSM-reading external collaborator: it turns a .osm.pbf
// extract into the inputs a street-layer builder consumes — ways carrying
// per-direction permission/speed/LTS labels, the set of intersection node
// ids a way must be cut at, and turn-restriction relations — without itself
// knowing anything about VertexStore/EdgeStore column layout. Per the
// router core's scope, tag interpretation policy lives entirely here so the
// builder only ever sees already-labeled ways.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"github.com/azybler/streetrouter/pkg/edgestore"
)

// Way is one parsed OSM way, labeled with everything a builder needs to lay
// it into the graph: its node chain (to be cut into edge-pair segments at
// intersection nodes) and per-direction flags/speed, already resolved from
// tags.
type Way struct {
	ID          osm.WayID
	NodeIDs     []osm.NodeID
	StreetClass edgestore.StreetClass

	ForwardFlags, BackwardFlags edgestore.Flag
	ForwardSpeedMps             float64
	BackwardSpeedMps            float64
}

// RestrictionKind distinguishes a node-via restriction (the common case)
// from a way-via restriction (a multi-way "via-way" turn restriction).
type RestrictionKind int

const (
	RestrictionViaNode RestrictionKind = iota
	RestrictionViaWay
)

// Restriction is a parsed "restriction" (or "restriction:<mode>") relation,
// still expressed in OSM way/node ids; the builder resolves these ids to
// directed-edge indices once it knows how each way was cut into segments.
type Restriction struct {
	Kind    RestrictionKind
	FromWay osm.WayID
	ToWay   osm.WayID
	ViaNode osm.NodeID  // set when Kind == RestrictionViaNode
	ViaWays []osm.WayID // set when Kind == RestrictionViaWay
	Only    bool
}

// ParseResult holds everything the street-layer builder needs from one OSM
// extract.
type ParseResult struct {
	Ways          []Way
	NodeLat       map[osm.NodeID]float64
	NodeLon       map[osm.NodeID]float64
	Intersections map[osm.NodeID]bool
	Restrictions  []Restriction
}

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway":       true,
	"motorway_link":  true,
	"trunk":          true,
	"trunk_link":     true,
	"primary":        true,
	"primary_link":   true,
	"secondary":      true,
	"secondary_link": true,
	"tertiary":       true,
	"tertiary_link":  true,
	"unclassified":   true,
	"residential":    true,
	"living_street":  true,
	"service":        true,
}

// walkableHighways lists highway tag values accessible on foot, beyond the
// car-accessible set above.
var walkableHighways = map[string]bool{
	"footway":    true,
	"path":       true,
	"pedestrian": true,
	"steps":      true,
	"track":      true,
}

// bikeableHighways lists highway tag values accessible by bicycle beyond
// the car-accessible set.
var bikeableHighways = map[string]bool{
	"cycleway": true,
	"path":     true,
	"track":    true,
}

// isCarAccessible returns true if the way is drivable by car.
func isCarAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if !carHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	// Skip restricted access.
	access := tags.Find("access")
	if access == "no" || access == "private" {
		return false
	}
	if tags.Find("motor_vehicle") == "no" {
		return false
	}

	return true
}

// directionFlags returns (forward, backward) based on highway type and oneway tags.
func directionFlags(tags osm.Tags) (forward, backward bool) {
	// Default: bidirectional.
	forward = true
	backward = true

	hw := tags.Find("highway")

	// Implied oneway for motorways and roundabouts.
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	// Explicit oneway tag overrides.
	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward = true
		backward = false
	case "-1", "reverse":
		forward = false
		backward = true
	case "no":
		forward = true
		backward = true
	case "reversible":
		// Time-dependent — skip entirely.
		forward = false
		backward = false
	}

	return forward, backward
}

// isWalkAccessible reports whether the way may be walked at all, in either
// direction (walking is never one-way on a shared path).
func isWalkAccessible(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if tags.Find("foot") == "no" {
		return false
	}
	if walkableHighways[hw] {
		return true
	}
	return isCarAccessible(tags) && tags.Find("sidewalk") != "none" && hw != "motorway" && hw != "motorway_link"
}

// isBikeAccessible reports whether the way may be cycled, independent of
// its oneway-for-cars direction (many jurisdictions exempt bikes from
// oneway restrictions via oneway:bicycle=no, handled by bikeOneway below).
func isBikeAccessible(tags osm.Tags) bool {
	if tags.Find("bicycle") == "no" {
		return false
	}
	hw := tags.Find("highway")
	if bikeableHighways[hw] {
		return true
	}
	return isCarAccessible(tags) && hw != "motorway" && hw != "motorway_link"
}

// bikeOneway reports whether bikes are exempted from the way's car oneway
// direction via oneway:bicycle=no — a common real-world override for
// contraflow cycling on a one-way street.
func bikeOneway(tags osm.Tags, carForward, carBackward bool) (forward, backward bool) {
	if tags.Find("oneway:bicycle") == "no" {
		return true, true
	}
	return carForward, carBackward
}

// streetClassFor maps a highway tag to one of the router's five coarse
// classes, coarsest (motorway) to finest (path).
func streetClassFor(tags osm.Tags) edgestore.StreetClass {
	switch tags.Find("highway") {
	case "motorway", "motorway_link", "trunk", "trunk_link":
		return edgestore.StreetClassMotorway
	case "primary", "primary_link":
		return edgestore.StreetClassPrimary
	case "secondary", "secondary_link", "tertiary", "tertiary_link":
		return edgestore.StreetClassSecondary
	case "residential", "unclassified", "living_street", "service":
		return edgestore.StreetClassLocal
	default:
		return edgestore.StreetClassPath
	}
}

// defaultSpeedKmh is the fallback free-flow speed used when a way has no
// usable maxspeed tag, keyed by highway class.
var defaultSpeedKmh = map[edgestore.StreetClass]float64{
	edgestore.StreetClassMotorway:  90,
	edgestore.StreetClassPrimary:   60,
	edgestore.StreetClassSecondary: 50,
	edgestore.StreetClassLocal:     30,
	edgestore.StreetClassPath:      15,
}

// carSpeedMps resolves a way's car free-flow speed in m/s from its maxspeed
// tag (a bare "50" is assumed km/h; "30 mph" is converted) or the class
// default when the tag is absent or unparseable.
func carSpeedMps(tags osm.Tags, class edgestore.StreetClass) float64 {
	kmh := defaultSpeedKmh[class]
	if ms := tags.Find("maxspeed"); ms != "" {
		var value float64
		var unit string
		if n, _ := fmt.Sscanf(ms, "%f %s", &value, &unit); n >= 1 && value > 0 {
			if n == 2 && unit == "mph" {
				kmh = value * 1.60934
			} else {
				kmh = value
			}
		}
	}
	return kmh / 3.6
}

// classifyLTS assigns a coarse bike level-of-traffic-stress from highway
// class and a dedicated cycleway: a separated bike path or quiet local
// street is LTS 1-2, an arterial without bike infrastructure is LTS 3-4.
// This is a deliberately simple heuristic standing in for a full LTS
// labeler, which the router core treats as an external collaborator's
// concern.
func classifyLTS(tags osm.Tags, class edgestore.StreetClass) (level int, explicit bool) {
	cw := tags.Find("cycleway")
	if cw == "track" || tags.Find("highway") == "cycleway" {
		return 1, true
	}
	switch class {
	case edgestore.StreetClassLocal, edgestore.StreetClassPath:
		if cw != "" {
			return 2, true
		}
		return 2, false
	case edgestore.StreetClassSecondary:
		if cw == "lane" {
			return 2, true
		}
		return 3, false
	default:
		return 4, false
	}
}

func buildPermissionFlags(tags osm.Tags, forwardDir bool, carFwd, carBwd, bikeFwd, bikeBwd bool, walkable bool) edgestore.Flag {
	var f edgestore.Flag
	allowCar := carFwd
	allowBike := bikeFwd
	if !forwardDir {
		allowCar = carBwd
		allowBike = bikeBwd
	}
	if allowCar {
		f |= edgestore.FlagAllowCar
	}
	if allowBike {
		f |= edgestore.FlagAllowBike
	}
	if walkable {
		f |= edgestore.FlagAllowPedestrian
		switch tags.Find("wheelchair") {
		case "no":
			// no wheelchair flags set
		case "limited":
			f |= edgestore.FlagAllowLimitedWheelchair
		default:
			f |= edgestore.FlagAllowWheelchair
		}
	}
	hw := tags.Find("highway")
	if hw == "cycleway" {
		f |= edgestore.FlagBikePath
	}
	if hw == "footway" {
		if tags.Find("footway") == "sidewalk" {
			f |= edgestore.FlagSidewalk
		}
		if tags.Find("footway") == "crossing" {
			f |= edgestore.FlagCrossing
		}
	}
	if tags.Find("junction") == "roundabout" {
		f |= edgestore.FlagRoundabout
	}
	if hw == "elevator" {
		f |= edgestore.FlagElevator
	}
	if hw == "steps" {
		f |= edgestore.FlagStairs
	}
	if tags.Find("public_transport") == "platform" {
		f |= edgestore.FlagPlatform
	}
	switch hw {
	case "motorway_link", "trunk_link", "primary_link", "secondary_link", "tertiary_link":
		f |= edgestore.FlagLink
	}
	return f
}

// labelWay converts a scanned OSM way into its router-facing Way record, or
// ok=false if the way carries no traversable mode at all.
func labelWay(w *osm.Way) (Way, bool) {
	tags := w.Tags
	class := streetClassFor(tags)

	carFwd, carBwd := false, false
	if isCarAccessible(tags) {
		carFwd, carBwd = directionFlags(tags)
	}
	walkable := isWalkAccessible(tags)
	bikeFwd, bikeBwd := false, false
	if isBikeAccessible(tags) {
		if carFwd || carBwd {
			bikeFwd, bikeBwd = bikeOneway(tags, carFwd, carBwd)
		} else {
			bikeFwd, bikeBwd = true, true
		}
	}

	if !carFwd && !carBwd && !bikeFwd && !bikeBwd && !walkable {
		return Way{}, false
	}

	lts, explicit := classifyLTS(tags, class)

	fwdFlags := buildPermissionFlags(tags, true, carFwd, carBwd, bikeFwd, bikeBwd, walkable)
	bwdFlags := buildPermissionFlags(tags, false, carFwd, carBwd, bikeFwd, bikeBwd, walkable)
	fwdFlags = edgestore.WithLTS(fwdFlags, lts, explicit)
	bwdFlags = edgestore.WithLTS(bwdFlags, lts, explicit)

	nodeIDs := make([]osm.NodeID, len(w.Nodes))
	for i, wn := range w.Nodes {
		nodeIDs[i] = wn.ID
	}

	speed := carSpeedMps(tags, class)
	return Way{
		ID:               w.ID,
		NodeIDs:          nodeIDs,
		StreetClass:      class,
		ForwardFlags:     fwdFlags,
		BackwardFlags:    bwdFlags,
		ForwardSpeedMps:  speed,
		BackwardSpeedMps: speed,
	}, true
}

// parseRestriction converts a "restriction"/"restriction:<mode>" relation
// into a Restriction, or ok=false if its member shape isn't one this
// pipeline resolves (missing from/to, or more than one via way).
func parseRestriction(rel *osm.Relation) (Restriction, bool) {
	kind := rel.Tags.Find("restriction")
	if kind == "" {
		for _, t := range rel.Tags {
			if len(t.Key) >= 11 && t.Key[:11] == "restriction" {
				kind = t.Value
				break
			}
		}
	}
	if kind == "" {
		return Restriction{}, false
	}
	only := len(kind) >= 4 && kind[:4] == "only"
	isNo := len(kind) >= 2 && kind[:2] == "no"
	if !only && !isNo {
		return Restriction{}, false
	}

	var fromWay, toWay osm.WayID
	var viaNode osm.NodeID
	var viaWays []osm.WayID
	haveFrom, haveTo, haveViaNode := false, false, false

	for _, m := range rel.Members {
		switch m.Role {
		case "from":
			if m.Type == osm.TypeWay {
				fromWay = osm.WayID(m.Ref)
				haveFrom = true
			}
		case "to":
			if m.Type == osm.TypeWay {
				toWay = osm.WayID(m.Ref)
				haveTo = true
			}
		case "via":
			if m.Type == osm.TypeNode {
				viaNode = osm.NodeID(m.Ref)
				haveViaNode = true
			} else if m.Type == osm.TypeWay {
				viaWays = append(viaWays, osm.WayID(m.Ref))
			}
		}
	}

	if !haveFrom || !haveTo {
		return Restriction{}, false
	}
	if haveViaNode {
		return Restriction{Kind: RestrictionViaNode, FromWay: fromWay, ToWay: toWay, ViaNode: viaNode, Only: only}, true
	}
	if len(viaWays) == 1 {
		return Restriction{Kind: RestrictionViaWay, FromWay: fromWay, ToWay: toWay, ViaWays: viaWays, Only: only}, true
	}
	// Multi-way via chains need to resolve the junction node between each
	// consecutive pair of via ways, which this pipeline's simplified
	// relation parsing does not attempt; drop with a warning per the
	// topology error-handling policy rather than guess at a chain.
	return Restriction{}, false
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only ways with at least one node inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox BBox // if non-zero, filter ways to this bounding box
}

// Parse reads an OSM PBF file and returns labeled ways, their node
// coordinates, the intersection-node set, and turn restrictions. The reader
// is consumed twice (seeks back to start for the second pass), so it must
// implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	useBBox := !opt.BBox.IsZero()

	// Pass 1: scan ways and restriction relations; count node references to
	// find intersections (any node shared by 2+ ways, or a way endpoint).
	referencedNodes := make(map[osm.NodeID]struct{})
	nodeRefCount := make(map[osm.NodeID]int)
	var ways []Way
	var relations []*osm.Relation

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true

	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Way:
			if len(obj.Nodes) < 2 {
				continue
			}
			way, ok := labelWay(obj)
			if !ok {
				continue
			}
			for i, id := range way.NodeIDs {
				referencedNodes[id] = struct{}{}
				nodeRefCount[id]++
				if i == 0 || i == len(way.NodeIDs)-1 {
					nodeRefCount[id]++ // endpoints always count as intersections
				}
			}
			ways = append(ways, way)
		case *osm.Relation:
			if obj.Tags.Find("type") == "restriction" {
				relations = append(relations, obj)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 1 (ways/relations): %w", err)
	}
	scanner.Close()

	intersections := make(map[osm.NodeID]bool, len(nodeRefCount))
	for id, count := range nodeRefCount {
		if count >= 2 {
			intersections[id] = true
		}
	}

	var restrictions []Restriction
	var droppedRestrictions int
	for _, rel := range relations {
		r, ok := parseRestriction(rel)
		if !ok {
			droppedRestrictions++
			continue
		}
		restrictions = append(restrictions, r)
	}
	if droppedRestrictions > 0 {
		log.Printf("dropped %d turn-restriction relations with unresolvable member shape", droppedRestrictions)
	}

	log.Printf("pass 1 complete: %d labeled ways, %d referenced nodes, %d intersections, %d restrictions",
		len(ways), len(referencedNodes), len(intersections), len(restrictions))

	// Pass 2: collect coordinates for referenced nodes only.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("pass 2 complete: %d node coordinates collected", len(nodeLat))

	if useBBox {
		ways = filterWaysToBBox(ways, nodeLat, nodeLon, opt.BBox)
	}

	return &ParseResult{
		Ways:          ways,
		NodeLat:       nodeLat,
		NodeLon:       nodeLon,
		Intersections: intersections,
		Restrictions:  restrictions,
	}, nil
}

// filterWaysToBBox drops ways with no node inside the bounding box; ways
// that straddle the edge are kept whole rather than clipped, since clipping
// mid-way would require synthesizing a new intersection the OSM ids don't
// carry.
func filterWaysToBBox(ways []Way, lat, lon map[osm.NodeID]float64, bbox BBox) []Way {
	kept := ways[:0]
	dropped := 0
	for _, w := range ways {
		anyInside := false
		for _, id := range w.NodeIDs {
			if la, ok := lat[id]; ok && bbox.Contains(la, lon[id]) {
				anyInside = true
				break
			}
		}
		if anyInside {
			kept = append(kept, w)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		log.Printf("bounding box filter dropped %d ways with no node inside", dropped)
	}
	return kept
}
