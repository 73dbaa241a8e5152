package spam

import (
	"testing"
	"time"
)

func TestTrackerThreshold(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	if tracker.RecordAndCheck("g1", "u1", base, 5, 3) {
		t.Fatalf("first message should not trip")
	}
	if tracker.RecordAndCheck("g1", "u1", base.Add(1*time.Second), 5, 3) {
		t.Fatalf("second message should not trip")
	}
	if !tracker.RecordAndCheck("g1", "u1", base.Add(2*time.Second), 5, 3) {
		t.Fatalf("third message within window should trip")
	}
}

func TestTrackerWindowRotation(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	tracker.RecordAndCheck("g1", "u1", base, 5, 3)
	tracker.RecordAndCheck("g1", "u1", base.Add(1*time.Second), 5, 3)
	if !tracker.RecordAndCheck("g1", "u1", base.Add(2*time.Second), 5, 3) {
		t.Fatalf("expected hit inside window")
	}
	if tracker.RecordAndCheck("g1", "u1", base.Add(10*time.Second), 5, 3) {
		t.Fatalf("expected no hit after window rotated")
	}
}

func TestTrackerWindowBoundaryInclusive(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	// a hit exactly windowSec old is still inside the window
	tracker.RecordAndCheck("g1", "u1", base, 5, 3)
	tracker.RecordAndCheck("g1", "u1", base.Add(1*time.Second), 5, 3)
	if !tracker.RecordAndCheck("g1", "u1", base.Add(5*time.Second), 5, 3) {
		t.Fatalf("hit aged exactly the window size should still count")
	}
}

func TestTrackerKeepsFiringDuringFlood(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	for i := 0; i < 2; i++ {
		tracker.RecordAndCheck("g1", "u1", base.Add(time.Duration(i)*time.Second), 10, 3)
	}
	for i := 2; i < 6; i++ {
		if !tracker.RecordAndCheck("g1", "u1", base.Add(time.Duration(i)*time.Second), 10, 3) {
			t.Fatalf("message %d during flood should still trip", i)
		}
	}
}

func TestTrackerKeysIndependent(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	tracker.RecordAndCheck("g1", "u1", base, 5, 2)
	if tracker.RecordAndCheck("g1", "u2", base, 5, 2) {
		t.Fatalf("different user must not share a window")
	}
	if tracker.RecordAndCheck("g2", "u1", base, 5, 2) {
		t.Fatalf("different guild must not share a window")
	}
	if !tracker.RecordAndCheck("g1", "u1", base.Add(time.Second), 5, 2) {
		t.Fatalf("original pair should trip on its second message")
	}
}

func TestTrackerCapacityBound(t *testing.T) {
	tracker := NewTracker()
	base := time.Now()

	for i := 0; i < 200; i++ {
		tracker.RecordAndCheck("g1", "u1", base.Add(time.Duration(i)*time.Millisecond), 60, 1000)
	}
	w := tracker.getWindow("g1:u1")
	w.mu.Lock()
	n := len(w.hits)
	w.mu.Unlock()
	if n > maxEntries {
		t.Fatalf("window grew past capacity: %d", n)
	}
}
