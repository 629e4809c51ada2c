package events

import (
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/gamestate"
	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/schema"
	"github.com/Dutchthenomad/rugsdata/internal/storage"
)

type fakeSink struct {
	jobs []storage.Job
}

func (f *fakeSink) Enqueue(j storage.Job) bool {
	f.jobs = append(f.jobs, j)
	return true
}

func (f *fakeSink) countKind(k storage.JobKind) int {
	n := 0
	for _, j := range f.jobs {
		if j.Kind == k {
			n++
		}
	}
	return n
}

type fakePublisher struct {
	frames []model.OutboundFrame
}

func (f *fakePublisher) Publish(frame model.OutboundFrame) {
	f.frames = append(f.frames, frame)
}

func (f *fakePublisher) typeCount(t string) int {
	n := 0
	for _, fr := range f.frames {
		if fr.Type == t {
			n++
		}
	}
	return n
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := schema.Load(schemaDir(t))
	if err != nil {
		t.Fatalf("load schemas: %v", err)
	}
	return reg
}

func schemaDir(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return wd + "/../../schemas"
}

func newTestRouter(t *testing.T) (*Router, *fakeSink, *fakePublisher) {
	t.Helper()
	sink := &fakeSink{}
	pub := &fakePublisher{}
	tracker := gamestate.New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	m := metrics.New()
	r := New(testRegistry(t), tracker, sink, pub, m, nil, nil)
	return r, sink, pub
}

func gameStateFrame(gameID string, tick int, price float64, active, rugged bool, cooldown int, allowPreRound bool) []byte {
	body := map[string]any{
		"gameId":            gameID,
		"tickCount":         tick,
		"price":             price,
		"active":            active,
		"rugged":            rugged,
		"cooldownTimer":     cooldown,
		"allowPreRoundBuys": allowPreRound,
	}
	b, _ := json.Marshal(body)
	return b
}

func TestHandleGameStateUpdate_StartsGameAndBroadcasts(t *testing.T) {
	r, sink, pub := newTestRouter(t)

	r.Handle(model.RawFrame{
		EventName:  "gameStateUpdate",
		Payload:    gameStateFrame("G1", 0, 1.0, true, false, 0, false),
		ReceivedAt: time.Now().UTC(),
	})

	if sink.countKind(storage.JobGame) != 1 {
		t.Fatalf("expected one game upsert, got %d", sink.countKind(storage.JobGame))
	}
	if sink.countKind(storage.JobSnapshot) != 1 {
		t.Fatalf("expected one snapshot, got %d", sink.countKind(storage.JobSnapshot))
	}
	if sink.countKind(storage.JobPRNG) != 1 {
		t.Fatalf("expected a prng_tracking seed record on game start")
	}
	if pub.typeCount("game_state_update") != 1 {
		t.Fatalf("expected one game_state_update broadcast, got %d", pub.typeCount("game_state_update"))
	}
}

func TestHandleGameStateUpdate_RugEmitsFrame(t *testing.T) {
	r, _, pub := newTestRouter(t)

	r.Handle(model.RawFrame{EventName: "gameStateUpdate", Payload: gameStateFrame("G1", 0, 1.0, true, false, 0, false), ReceivedAt: time.Now().UTC()})
	r.Handle(model.RawFrame{EventName: "gameStateUpdate", Payload: gameStateFrame("G1", 1, 0.02, true, true, 0, false), ReceivedAt: time.Now().UTC()})

	if pub.typeCount("rug") != 1 {
		t.Fatalf("expected exactly one rug frame, got %d", pub.typeCount("rug"))
	}
}

func TestHandleTrade_PersistsAndBroadcasts(t *testing.T) {
	r, sink, pub := newTestRouter(t)

	payload, _ := json.Marshal(map[string]any{
		"id": "T1", "gameId": "G1", "playerId": "P1", "type": "buy",
		"tickIndex": 3, "amount": 10, "qty": 2,
	})
	r.Handle(model.RawFrame{EventName: "standard/newTrade", Payload: payload, ReceivedAt: time.Now().UTC()})

	if sink.countKind(storage.JobTrade) != 1 {
		t.Fatalf("expected one trade job, got %d", sink.countKind(storage.JobTrade))
	}
	if pub.typeCount("trade") != 1 {
		t.Fatalf("expected one trade broadcast, got %d", pub.typeCount("trade"))
	}
}

func TestHandleSideBet_DisambiguatesPlacedVsResult(t *testing.T) {
	r, sink, pub := newTestRouter(t)

	placed, _ := json.Marshal(map[string]any{"gameId": "G1", "playerId": "P1", "startTick": 0, "betAmount": 5})
	r.Handle(model.RawFrame{EventName: "standard/sideBetPlaced", Payload: placed, ReceivedAt: time.Now().UTC()})

	result, _ := json.Marshal(map[string]any{"gameId": "G1", "playerId": "P1", "startTick": 0, "endTick": 10, "betAmount": 5, "won": true})
	r.Handle(model.RawFrame{EventName: "sideBet", Payload: result, ReceivedAt: time.Now().UTC()})

	if sink.countKind(storage.JobSideBet) != 2 {
		t.Fatalf("expected two side bet rows, got %d", sink.countKind(storage.JobSideBet))
	}
	if pub.typeCount("side_bet") != 2 {
		t.Fatalf("expected two side_bet broadcasts, got %d", pub.typeCount("side_bet"))
	}

	var sawPlaced, sawResult bool
	for _, j := range sink.jobs {
		if j.Kind != storage.JobSideBet {
			continue
		}
		switch j.SideBet.Event {
		case "placed":
			sawPlaced = true
		case "result":
			sawResult = true
		}
	}
	if !sawPlaced || !sawResult {
		t.Fatalf("expected both placed and result events, got placed=%v result=%v", sawPlaced, sawResult)
	}
}

func TestHandleSchemaFailure_StillArchivesAndTagsInvalid(t *testing.T) {
	r, sink, _ := newTestRouter(t)

	payload, _ := json.Marshal(map[string]any{
		"gameId": "G1", "tickCount": 0, "price": nil, "active": true,
	})
	r.Handle(model.RawFrame{EventName: "gameStateUpdate", Payload: payload, ReceivedAt: time.Now().UTC()})

	if sink.countKind(storage.JobEvent) != 1 {
		t.Fatalf("schema failures must still be archived, got %d event jobs", sink.countKind(storage.JobEvent))
	}
	found := false
	for _, j := range sink.jobs {
		if j.Kind == storage.JobEvent && j.Event.Validation != nil && !j.Event.Validation.OK {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the archived event to carry validation.ok=false")
	}
}

func TestHandleUnknownEvent_ArchivedOnlyNoBroadcast(t *testing.T) {
	r, sink, pub := newTestRouter(t)

	r.Handle(model.RawFrame{EventName: "rugPool", Payload: []byte(`{"x":1}`), ReceivedAt: time.Now().UTC()})

	if sink.countKind(storage.JobEvent) != 1 {
		t.Fatalf("expected ancillary event archived, got %d", sink.countKind(storage.JobEvent))
	}
	if len(pub.frames) != 0 {
		t.Fatalf("ancillary events must not be broadcast, got %d frames", len(pub.frames))
	}
}
