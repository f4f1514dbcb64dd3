package engine

import (
	"testing"
	"time"

	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/registry"
	"github.com/Cronos79/station-game/internal/universe"
)

func newTestUniverse(t *testing.T) *universe.Universe {
	t.Helper()
	reg, err := registry.Load()
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}
	return universe.New(reg, logger.NewLogger())
}

func TestCatchUpClampsLongDowntime(t *testing.T) {
	u := newTestUniverse(t)
	log := logger.NewLogger()

	// Server was down for 10000s; only the cap is replayed.
	now := u.LastUpdate().Add(10000 * time.Second)
	res := CatchUp(u, now, 1.0, 300.0, NewDecisionBudget(50), log)

	if res.Offline != 10000.0 {
		t.Errorf("Expected offline 10000, got %v", res.Offline)
	}
	if res.Replayed != 300.0 {
		t.Errorf("Expected 300s replayed, got %v", res.Replayed)
	}
	if u.SimTime() != 300.0 {
		t.Errorf("Expected sim_time 300 after clamped catch-up, got %v", u.SimTime())
	}
	if res.Ticks != 300 {
		t.Errorf("Expected 300 fixed steps, got %d", res.Ticks)
	}
}

func TestCatchUpShortDowntimeWithRemainder(t *testing.T) {
	u := newTestUniverse(t)
	log := logger.NewLogger()

	// 10.5s offline with 1s ticks: 10 full steps plus a 0.5s remainder.
	now := u.LastUpdate().Add(10500 * time.Millisecond)
	res := CatchUp(u, now, 1.0, 300.0, NewDecisionBudget(50), log)

	if res.Ticks != 10 {
		t.Errorf("Expected 10 full ticks, got %d", res.Ticks)
	}
	if diff := u.SimTime() - 10.5; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("Expected sim_time 10.5, got %v", u.SimTime())
	}
}

func TestCatchUpDrainsDueEvents(t *testing.T) {
	u := newTestUniverse(t)
	log := logger.NewLogger()
	stationID := u.EnsurePlayerStation(1, "ada")

	// One event inside the replayed window, one past the clamp.
	if _, err := u.ScheduleBuildComplete(stationID, "solar_array_1", 100.0); err != nil {
		t.Fatalf("ScheduleBuildComplete failed: %v", err)
	}
	if _, err := u.ScheduleBuildComplete(stationID, "habitat_pod_1", 500.0); err != nil {
		t.Fatalf("ScheduleBuildComplete failed: %v", err)
	}

	now := u.LastUpdate().Add(time.Hour)
	res := CatchUp(u, now, 1.0, 300.0, NewDecisionBudget(50), log)

	if res.EventsApplied != 1 {
		t.Errorf("Expected 1 event applied during catch-up, got %d", res.EventsApplied)
	}
	modules := u.StationsOwnedBy(1)[0].Modules
	if len(modules) != 1 || modules[0] != "solar_array_1" {
		t.Errorf("Expected only the due build installed, got %v", modules)
	}

	// The event beyond the clamp waits for live ticking.
	u.Step(200.0)
	if len(u.StationsOwnedBy(1)[0].Modules) != 2 {
		t.Error("Deferred event did not fire after live stepping")
	}
}

func TestCatchUpNoOfflineTime(t *testing.T) {
	u := newTestUniverse(t)
	log := logger.NewLogger()

	// Clock skew: last_update in the future must not replay anything.
	res := CatchUp(u, u.LastUpdate().Add(-time.Minute), 1.0, 300.0, NewDecisionBudget(50), log)
	if res.Replayed != 0 || u.SimTime() != 0 {
		t.Errorf("Catch-up replayed time for negative offline: %+v", res)
	}
}

func TestDecisionBudget(t *testing.T) {
	b := NewDecisionBudget(3)

	for i := 0; i < 3; i++ {
		if !b.TryConsume() {
			t.Fatalf("Budget exhausted after %d of 3 decisions", i)
		}
	}
	if b.TryConsume() {
		t.Error("Budget allowed a fourth decision")
	}
	if b.Used() != 3 || b.Remaining() != 0 {
		t.Errorf("Unexpected budget accounting: used=%d remaining=%d", b.Used(), b.Remaining())
	}

	b.Reset()
	if !b.TryConsume() {
		t.Error("Reset did not restore the allowance")
	}
}
