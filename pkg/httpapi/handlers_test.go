package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/azybler/streetrouter/pkg/edgestore"
	"github.com/azybler/streetrouter/pkg/streetlayer"
	"github.com/azybler/streetrouter/pkg/streetrouter"
)

// buildLine builds a 3-vertex walkable/bikeable/drivable chain v0->v1->v2,
// each pair 100m at 10 m/s, the same shape router_test.go's buildGrid uses.
func buildLine(t *testing.T) *streetlayer.StreetLayer {
	t.Helper()
	sl := streetlayer.New()
	v0 := sl.Vertices.AddVertex(0, 0)
	v1 := sl.Vertices.AddVertex(0, 0.0009)
	v2 := sl.Vertices.AddVertex(0, 0.0018)

	for _, pair := range [][2]int32{{v0, v1}, {v1, v2}} {
		fwd, err := sl.AddEdgePair(pair[0], pair[1], 100_000, 1)
		if err != nil {
			t.Fatalf("AddEdgePair: %v", err)
		}
		for _, e := range []int32{fwd, fwd + 1} {
			c := sl.Edges.At(e)
			c.SetFlag(edgestore.FlagAllowPedestrian)
			c.SetFlag(edgestore.FlagAllowBike)
			c.SetFlag(edgestore.FlagAllowCar)
			c.SetSpeed(10)
			c.SetLTS(1, true)
		}
	}
	sl.BuildIndex()
	if err := sl.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	return sl
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	sl := buildLine(t)
	router := streetrouter.New(sl)
	return NewHandlers(sl, router)
}

func TestHandleRouteSuccess(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"start":{"lat":0,"lng":0},"end":{"lat":0,"lng":0.0018},"mode":"walk"}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200. body: %s", w.Code, w.Body.String())
	}
	var resp RouteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalTimeSeconds <= 0 {
		t.Errorf("TotalTimeSeconds = %f, want > 0", resp.TotalTimeSeconds)
	}
	if len(resp.Geometry) < 2 {
		t.Errorf("Geometry has %d points, want at least 2", len(resp.Geometry))
	}
}

func TestHandleRouteMissingContentType(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"start":{"lat":0,"lng":0},"end":{"lat":0,"lng":0.0018}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteInvalidJSON(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRouteOutOfBoundsCoordinate(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"start":{"lat":91,"lng":0},"end":{"lat":0,"lng":0.0018}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRoutePointTooFarFromRoad(t *testing.T) {
	h := newTestHandlers(t)

	// 10 degrees away is nowhere near the small test network.
	body := `{"start":{"lat":10,"lng":10},"end":{"lat":0,"lng":0.0018}}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestHandleRouteCarMode(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"start":{"lat":0,"lng":0},"end":{"lat":0,"lng":0.0018},"mode":"car"}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestHandleRouteUnknownMode(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"start":{"lat":0,"lng":0},"end":{"lat":0,"lng":0.0018},"mode":"teleport"}`
	req := httptest.NewRequest("POST", "/api/v1/route", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleRoute(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	h.HandleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want 'ok'", resp.Status)
	}
}

func TestHandleStats(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var resp StatsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.NumVertices != 3 {
		t.Errorf("NumVertices = %d, want 3", resp.NumVertices)
	}
	if resp.NumPairs != 2 {
		t.Errorf("NumPairs = %d, want 2", resp.NumPairs)
	}
}
