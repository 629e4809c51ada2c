package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dutchthenomad/rugsdata/internal/gamestate"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/schema"
)

func testDeps() Deps {
	return Deps{
		Tracker:  gamestate.New(nil),
		Metrics:  metrics.New(),
		Registry: &schema.Registry{},
	}
}

func TestQueryIntDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/games?limit=notanumber", nil)
	if got := queryInt(r, "limit", 50); got != 50 {
		t.Errorf("queryInt() = %d, want default 50 on unparsable value", got)
	}
}

func TestQueryIntParsesValue(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/games?limit=10", nil)
	if got := queryInt(r, "limit", 50); got != 10 {
		t.Errorf("queryInt() = %d, want 10", got)
	}
}

func TestQueryIntMissingUsesDefault(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	if got := queryInt(r, "limit", 50); got != 50 {
		t.Errorf("queryInt() = %d, want default 50", got)
	}
}

func TestHealthHandler(t *testing.T) {
	h := &handler{deps: testDeps()}
	w := httptest.NewRecorder()
	h.health(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestMetricsHandler(t *testing.T) {
	h := &handler{deps: testDeps()}
	w := httptest.NewRecorder()
	h.metrics(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if _, ok := body["uptimeSeconds"]; !ok {
		t.Error("expected uptimeSeconds field in metrics response")
	}
}

func TestSchemasHandlerEmptyRegistry(t *testing.T) {
	h := &handler{deps: testDeps()}
	w := httptest.NewRecorder()
	h.schemas(w, httptest.NewRequest(http.MethodGet, "/api/schemas", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var out []schema.Descriptor
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected an empty descriptor list, got %d", len(out))
	}
}

func TestLiveHandlerServesTrackerStateWithoutTouchingStore(t *testing.T) {
	deps := testDeps()
	deps.Tracker.HandleSnapshot(model.GameStateSnapshot{
		GameID: "g1", TickCount: 0, Active: true,
	}, nil)

	h := &handler{deps: deps}
	w := httptest.NewRecorder()
	// Store is left nil; this must not be dereferenced since the tracker
	// already has a live game.
	h.live(w, httptest.NewRequest(http.MethodGet, "/api/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var live model.LiveState
	if err := json.Unmarshal(w.Body.Bytes(), &live); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if live.GameID != "g1" {
		t.Errorf("GameID = %q, want g1", live.GameID)
	}
}

func TestWriteErrorBody(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusBadRequest, "gameId is required")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Error != "gameId is required" {
		t.Errorf("Error = %q, want gameId is required", body.Error)
	}
}

func TestOHLCRequiresGameID(t *testing.T) {
	h := &handler{deps: testDeps()}
	w := httptest.NewRecorder()
	h.ohlc(w, httptest.NewRequest(http.MethodGet, "/api/ohlc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when gameId is missing", w.Code)
	}
}

func TestGodCandlesRequiresGameID(t *testing.T) {
	h := &handler{deps: testDeps()}
	w := httptest.NewRecorder()
	h.godCandles(w, httptest.NewRequest(http.MethodGet, "/api/god-candles", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when gameId is missing", w.Code)
	}
}
