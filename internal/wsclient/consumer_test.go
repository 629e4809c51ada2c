package wsclient

import (
	"testing"
	"time"
)

func TestBackoffDelayCapsAtMax(t *testing.T) {
	max := 5 * time.Second
	for attempt := 1; attempt <= 20; attempt++ {
		d := backoffDelay(attempt, time.Second, max)
		if d < 0 || d > max {
			t.Fatalf("backoffDelay(%d) = %v, want in [0, %v]", attempt, d, max)
		}
	}
}

func TestBackoffDelayGrowsWithAttempt(t *testing.T) {
	// The upper bound of the jitter window should widen with attempt
	// until it hits the max cap; sample many draws and check the ceiling
	// observed at a late attempt exceeds the ceiling at attempt 1.
	base := 100 * time.Millisecond
	max := 10 * time.Second

	var maxAt1, maxAt5 time.Duration
	for i := 0; i < 200; i++ {
		if d := backoffDelay(1, base, max); d > maxAt1 {
			maxAt1 = d
		}
		if d := backoffDelay(5, base, max); d > maxAt5 {
			maxAt5 = d
		}
	}
	if maxAt5 <= maxAt1 {
		t.Errorf("expected wider jitter window at attempt 5 (%v) than attempt 1 (%v)", maxAt5, maxAt1)
	}
}

func TestBackoffDelayDefaultsWhenUnconfigured(t *testing.T) {
	d := backoffDelay(1, 0, 0)
	if d < 0 || d > 5*time.Second {
		t.Errorf("backoffDelay with zero base/max = %v, want within default 5s ceiling", d)
	}
}

func TestBackoffDelayNeverNegativeOnOverflowAttempt(t *testing.T) {
	// A very large attempt would overflow the left shift; the function
	// must fall back to max rather than return a negative duration.
	d := backoffDelay(100, time.Second, 30*time.Second)
	if d < 0 || d > 30*time.Second {
		t.Errorf("backoffDelay(100) = %v, want within [0, 30s]", d)
	}
}
