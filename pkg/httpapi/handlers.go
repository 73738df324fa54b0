package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/geo"
	"github.com/azybler/streetrouter/pkg/streetlayer"
	"github.com/azybler/streetrouter/pkg/streetrouter"
)

// splitSearchRadiusMeters bounds how far HandleRoute will look for a usable
// edge near a query endpoint before giving up.
const splitSearchRadiusMeters = 2000

// defaultWalkSpeedMps seeds pedestrian legs (origin/destination seeding and
// any walk-bike fallback) when the caller doesn't request car-specific
// timing; mirrors the fallback speed builder.Build assigns to pedestrian-only
// ways with no OSM-derived speed.
const defaultWalkSpeedMps = 1.4

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	layer  *streetlayer.StreetLayer
	router *streetrouter.StreetRouter
	stats  StatsResponse
}

// NewHandlers creates handlers serving queries against layer via router.
func NewHandlers(layer *streetlayer.StreetLayer, router *streetrouter.StreetRouter) *Handlers {
	return &Handlers{
		layer:  layer,
		router: router,
		stats: StatsResponse{
			NumVertices: layer.Vertices.Size(),
			NumPairs:    int(layer.Edges.PairCount()),
		},
	}
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req RouteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}

	mode, err := parseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mode", "mode")
		return
	}

	startSplit, err := h.layer.FindSplit(req.Start.Lat, req.Start.Lng, splitSearchRadiusMeters, mode)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "start")
		return
	}
	endSplit, err := h.layer.FindSplit(req.End.Lat, req.End.Lng, splitSearchRadiusMeters, mode)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "end")
		return
	}

	walkSpeed := 0.0
	if mode == edgestore.ModeWalk {
		walkSpeed = defaultWalkSpeedMps
	}

	sreq := streetrouter.Request{
		Mode:                mode,
		Dominance:           streetrouter.DominanceTimeSeconds,
		DriveOnRight:        req.DriveOnRight,
		Origins:             streetrouter.SeedFromSplit(h.layer, startSplit, walkSpeed),
		RequireWheelchair:   req.Wheelchair,
		LimitedWheelchairOK: req.LimitedWheelchairOK,
		MaxBikeLTS:          req.MaxBikeLTS,
		WalkBikeFallback:    req.WalkBikeFallback,
		WalkSpeedMps:        defaultWalkSpeedMps,
		Destinations:        []int32{endSplit.Edge, endSplit.Edge ^ 1},
	}

	state, err := h.router.Search(r.Context(), sreq)
	if state != nil {
		defer h.router.Release(state)
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
		return
	}

	value, timeSeconds, ok := streetrouter.StateAt(h.layer, state, endSplit)
	if !ok || math.IsInf(value, 1) {
		writeError(w, http.StatusNotFound, "no_route_found", "")
		return
	}

	resp := RouteResponse{
		TotalTimeSeconds: timeSeconds,
		Geometry:         reconstructGeometry(h.layer, state, startSplit, endSplit),
	}
	resp.TotalDistanceMeters = geometryLengthMeters(resp.Geometry)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.stats)
}

func parseMode(m string) (edgestore.StreetMode, error) {
	switch m {
	case "", "walk", "pedestrian", "foot":
		return edgestore.ModeWalk, nil
	case "bicycle", "bike":
		return edgestore.ModeBicycle, nil
	case "car", "drive":
		return edgestore.ModeCar, nil
	default:
		return 0, errors.New("httpapi: unknown mode")
	}
}

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}

// reconstructGeometry walks predecessor edges back from end's edge (or from
// its reverse when that edge was not reached) all the way to the origin, and
// flattens the traversed edges' full geometry into one ordered point
// sequence; the first and last edges are not trimmed to the split points.
func reconstructGeometry(layer *streetlayer.StreetLayer, state *streetrouter.State, start, end streetlayer.Split) []LatLngJSON {
	path := tracePath(layer, state, end.Edge)
	if path == nil {
		path = tracePath(layer, state, end.Edge^1)
	}
	if path == nil {
		return nil
	}

	var out []LatLngJSON
	for _, e := range path {
		c := layer.Edges.At(e)
		from := layer.Vertices.At(c.GetFromVertex())
		to := layer.Vertices.At(c.GetToVertex())
		c.ForEachPoint(from.FixedLat(), from.FixedLon(), to.FixedLat(), to.FixedLon(), func(fixedLat, fixedLon int32) {
			pt := LatLngJSON{Lat: geo.ToFloat(fixedLat), Lng: geo.ToFloat(fixedLon)}
			if n := len(out); n == 0 || out[n-1] != pt {
				out = append(out, pt)
			}
		})
	}
	return out
}

// tracePath walks predecessor edges from e back to an origin (predEdge ==
// -1) and returns the edges in traversal order, or nil if e was never
// reached.
func tracePath(layer *streetlayer.StreetLayer, state *streetrouter.State, e int32) []int32 {
	if !state.Reached(e) {
		return nil
	}
	var reversed []int32
	cur := e
	for {
		reversed = append(reversed, cur)
		pred := state.PredecessorEdge(cur)
		if pred < 0 {
			break
		}
		cur = pred
	}
	out := make([]int32, len(reversed))
	for i, e := range reversed {
		out[len(reversed)-1-i] = e
	}
	return out
}

func geometryLengthMeters(pts []LatLngJSON) float64 {
	total := 0.0
	for i := 0; i+1 < len(pts); i++ {
		total += geo.Haversine(pts[i].Lat, pts[i].Lng, pts[i+1].Lat, pts[i+1].Lng)
	}
	return total
}
