package budget

import (
	"testing"
	"time"
)

func TestTrackerConsumeAccumulates(t *testing.T) {
	tracker := NewTracker(2, 0.5)

	if !tracker.CanSpend() {
		t.Fatal("fresh tracker must allow spending")
	}

	status := tracker.Consume()
	if status.Calls != 1 {
		t.Fatalf("calls %d, want 1", status.Calls)
	}
	if status.EstimatedSpendUSD != 0.5 {
		t.Fatalf("spend %f, want 0.5", status.EstimatedSpendUSD)
	}

	tracker.Consume()
	tracker.Consume()
	status = tracker.Consume()
	if status.Calls != 4 {
		t.Fatalf("calls %d, want 4", status.Calls)
	}
	if status.WithinBudget {
		t.Fatal("spend at cap must report not within budget")
	}
	if tracker.CanSpend() {
		t.Fatal("next call would exceed cap")
	}
}

func TestTrackerCanSpendBoundary(t *testing.T) {
	// Cap 1.0, per-call 0.5: the pre-check allows exactly two calls.
	tracker := NewTracker(1, 0.5)

	tracker.Consume()
	if !tracker.CanSpend() {
		t.Fatal("second call fits exactly at the cap")
	}
	tracker.Consume()
	if tracker.CanSpend() {
		t.Fatal("third call must be blocked")
	}
}

func TestTrackerDayRollover(t *testing.T) {
	tracker := NewTracker(1, 1)
	base := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return base }

	tracker.Consume()
	if tracker.CanSpend() {
		t.Fatal("cap reached for the day")
	}

	tracker.now = func() time.Time { return base.Add(2 * time.Hour) }
	if !tracker.CanSpend() {
		t.Fatal("new UTC day must reset the budget")
	}
	status := tracker.Status()
	if status.Calls != 0 || status.DayKey != "2026-03-02" {
		t.Fatalf("unexpected rollover status: %+v", status)
	}
}
