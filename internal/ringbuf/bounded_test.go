package ringbuf

import (
	"testing"
	"time"
)

func TestBounded_SendDropOldest(t *testing.T) {
	buf := NewBounded[int](3)
	for i := 0; i < 3; i++ {
		if dropped := buf.SendDropOldest(i); dropped {
			t.Fatalf("unexpected drop while under capacity at i=%d", i)
		}
	}
	if dropped := buf.SendDropOldest(3); !dropped {
		t.Error("expected drop when sending into a full buffer")
	}
	if buf.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", buf.Dropped())
	}

	want := []int{1, 2, 3}
	for _, w := range want {
		got, ok := buf.TryReceive()
		if !ok || got != w {
			t.Errorf("TryReceive() = %d, %v; want %d, true", got, ok, w)
		}
	}
}

func TestBounded_SendRejectFull(t *testing.T) {
	buf := NewBounded[int](2)
	if !buf.SendRejectFull(1) {
		t.Fatal("expected first send to succeed")
	}
	if !buf.SendRejectFull(2) {
		t.Fatal("expected second send to succeed")
	}
	if buf.SendRejectFull(3) {
		t.Error("expected third send to be rejected at capacity")
	}
}

func TestBounded_BlockingReceive(t *testing.T) {
	buf := NewBounded[int](4)
	done := make(chan int)
	go func() {
		v, ok := buf.Receive()
		if !ok {
			done <- -1
			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	buf.SendRejectFull(42)

	select {
	case v := <-done:
		if v != 42 {
			t.Errorf("Receive() = %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not unblock after send")
	}
}

func TestBounded_CloseUnblocksReceive(t *testing.T) {
	buf := NewBounded[int](4)
	done := make(chan bool)
	go func() {
		_, ok := buf.Receive()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	buf.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected Receive() to report closed with ok=false")
		}
	case <-time.After(time.Second):
		t.Fatal("Receive() did not unblock after Close")
	}
}
