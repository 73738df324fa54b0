package httpapi

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteRequest is the JSON body for POST /api/v1/route.
type RouteRequest struct {
	Start LatLngJSON `json:"start"`
	End   LatLngJSON `json:"end"`

	// Mode selects the travel mode: "walk", "bicycle", or "car". Defaults
	// to "walk" if empty.
	Mode string `json:"mode"`

	// Wheelchair restricts pedestrian traversal to wheelchair-accessible
	// edges; ignored for non-walk modes.
	Wheelchair          bool `json:"wheelchair"`
	LimitedWheelchairOK bool `json:"limited_wheelchair_ok"`

	// MaxBikeLTS caps the level of traffic stress a bicycle route may use
	// at riding speed; 0 means uncapped. Ignored for non-bicycle modes.
	MaxBikeLTS       int  `json:"max_bike_lts"`
	WalkBikeFallback bool `json:"walk_bike_fallback"`

	DriveOnRight bool `json:"drive_on_right"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	TotalDistanceMeters float64      `json:"total_distance_meters"`
	TotalTimeSeconds    float64      `json:"total_time_seconds"`
	Geometry            []LatLngJSON `json:"geometry"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumVertices int `json:"num_vertices"`
	NumPairs    int `json:"num_pairs"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
