package events

import (
	"testing"
)

func TestQueueOrdering(t *testing.T) {
	// Setup: insert out of order
	var q Queue
	q.Push(NewBuildModuleComplete(3, 50.0, 1, "storage_bay_1"))
	q.Push(NewBuildModuleComplete(1, 10.0, 1, "solar_array_1"))
	q.Push(NewBuildModuleComplete(2, 30.0, 2, "habitat_pod_1"))

	// Act: drain everything
	var ids []int64
	for {
		e, ok := q.PopDue(100.0)
		if !ok {
			break
		}
		ids = append(ids, e.ID)
	}

	// Assert: fire-time order
	want := []int64{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Position %d: expected event %d, got %d", i, want[i], ids[i])
		}
	}
}

func TestQueueTieBreakByID(t *testing.T) {
	// Two events due at the same instant resolve in id order, regardless
	// of insertion order.
	var q Queue
	q.Push(NewBuildModuleComplete(7, 60.0, 1, "workshop_1"))
	q.Push(NewBuildModuleComplete(2, 60.0, 1, "solar_array_1"))

	first, ok := q.PopDue(60.0)
	if !ok || first.ID != 2 {
		t.Errorf("Expected event 2 first on equal fire time, got %v (ok=%v)", first.ID, ok)
	}
	second, ok := q.PopDue(60.0)
	if !ok || second.ID != 7 {
		t.Errorf("Expected event 7 second, got %v (ok=%v)", second.ID, ok)
	}
}

func TestQueueFireTimeBoundary(t *testing.T) {
	var q Queue
	q.Push(NewBuildModuleComplete(1, 60.0, 1, "solar_array_1"))

	// Just before the fire time: nothing is due.
	if _, ok := q.PopDue(59.999999); ok {
		t.Error("Event fired before its fire time")
	}

	// Exactly at the fire time: due.
	e, ok := q.PopDue(60.0)
	if !ok {
		t.Fatal("Event did not fire at its exact fire time")
	}
	if e.BuildModuleComplete == nil || e.BuildModuleComplete.ModuleID != "solar_array_1" {
		t.Errorf("Unexpected payload: %+v", e.BuildModuleComplete)
	}

	// Popped once, never again.
	if _, ok := q.PopDue(1000.0); ok {
		t.Error("Event fired twice")
	}
}

func TestQueueRemove(t *testing.T) {
	var q Queue
	q.Push(NewBuildModuleComplete(1, 10.0, 1, "solar_array_1"))
	q.Push(NewBuildModuleComplete(2, 20.0, 1, "habitat_pod_1"))

	if !q.Remove(1) {
		t.Fatal("Remove reported false for a present event")
	}
	if q.Remove(1) {
		t.Error("Remove reported true for an absent event")
	}

	e, ok := q.PopDue(100.0)
	if !ok || e.ID != 2 {
		t.Errorf("Expected only event 2 to remain, got %v (ok=%v)", e.ID, ok)
	}
}

func TestPendingIsACopy(t *testing.T) {
	var q Queue
	q.Push(NewBuildModuleComplete(1, 10.0, 5, "solar_array_1"))

	pending := q.Pending()
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending event, got %d", len(pending))
	}
	pending[0].BuildModuleComplete.ModuleID = "mutated"

	e, _ := q.PopDue(100.0)
	if e.BuildModuleComplete.ModuleID != "solar_array_1" {
		t.Error("Mutating the Pending() result leaked into the queue")
	}
}
