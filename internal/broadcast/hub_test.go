package broadcast

import (
	"testing"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/metrics"
	"github.com/Dutchthenomad/rugsdata/internal/model"
)

func TestSubscribeSendsHello(t *testing.T) {
	h := New(4, time.Hour, metrics.New(), nil)
	sub := h.Subscribe()

	frame, ok := sub.Outbound().TryReceive()
	if !ok {
		t.Fatal("expected a hello frame immediately after subscribe")
	}
	if frame.Type != "hello" {
		t.Errorf("Type = %q, want hello", frame.Type)
	}
}

func TestPublishOrderPerSubscriber(t *testing.T) {
	h := New(16, time.Hour, metrics.New(), nil)
	sub := h.Subscribe()
	sub.Outbound().TryReceive() // drain hello

	for i := 0; i < 5; i++ {
		h.Publish(model.OutboundFrame{Type: "trade", Data: map[string]any{"i": i}})
	}

	for i := 0; i < 5; i++ {
		frame, ok := sub.Outbound().TryReceive()
		if !ok {
			t.Fatalf("frame %d missing", i)
		}
		if got := frame.Data["i"]; got != i {
			t.Errorf("frame %d: Data[i] = %v, want %d", i, got, i)
		}
	}
}

func TestSlowSubscriberEvicted(t *testing.T) {
	m := metrics.New()
	h := New(2, time.Hour, m, nil)
	sub := h.Subscribe()

	// Buffer depth 2: hello already occupies one slot. Publish enough to
	// overflow without ever draining, simulating a subscriber reading
	// slower than the publish rate.
	for i := 0; i < 10; i++ {
		h.Publish(model.OutboundFrame{Type: "trade"})
	}

	select {
	case <-sub.Closed():
	default:
		t.Fatal("expected slow subscriber to be evicted")
	}
	if m.WSSlowClientDrops() == 0 {
		t.Error("expected wsSlowClientDrops to increment")
	}
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after eviction", h.Count())
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	h := New(4, time.Hour, nil, nil)
	sub := h.Subscribe()
	h.Unsubscribe(sub)
	h.Unsubscribe(sub) // must not panic on double-close
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
}
