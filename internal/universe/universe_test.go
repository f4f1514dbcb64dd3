package universe

import (
	"testing"
	"time"

	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/registry"
)

func newTestUniverse(t *testing.T) *Universe {
	t.Helper()
	reg, err := registry.Load()
	if err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}
	return New(reg, logger.NewLogger())
}

// grantSolarMaterials puts exactly one solar array's worth of materials in
// the station.
func grantSolarMaterials(t *testing.T, u *Universe, stationID int64) {
	t.Helper()
	for material, amount := range map[string]float64{
		"iron_bar":   4.0,
		"copper_bar": 2.0,
		"glass_pane": 2.0,
	} {
		if err := u.GrantMaterial(stationID, material, amount); err != nil {
			t.Fatalf("GrantMaterial(%s) failed: %v", material, err)
		}
	}
}

func TestEnsurePlayerStation(t *testing.T) {
	u := newTestUniverse(t)

	id := u.EnsurePlayerStation(42, "ada")
	if id == 0 {
		t.Fatal("Expected a station id")
	}

	// Second call returns the same station, no duplicates.
	if again := u.EnsurePlayerStation(42, "ada"); again != id {
		t.Errorf("Expected same station %d, got %d", id, again)
	}

	views := u.StationsOwnedBy(42)
	if len(views) != 1 {
		t.Fatalf("Expected 1 station, got %d", len(views))
	}
	st := views[0]
	if st.Credits != 1000.0 {
		t.Errorf("Expected starter credits 1000, got %v", st.Credits)
	}
	if st.Inventory["iron_ore"] != 5.0 || st.Inventory["copper_ore"] != 2.0 {
		t.Errorf("Unexpected starter inventory: %v", st.Inventory)
	}
}

func TestBuildOrderLifecycle(t *testing.T) {
	u := newTestUniverse(t)
	stationID := u.EnsurePlayerStation(1, "ada")
	grantSolarMaterials(t, u, stationID)

	// Act: queue the build
	receipt, err := u.SubmitBuildOrder(stationID, "solar_array_1", 1)
	if err != nil {
		t.Fatalf("SubmitBuildOrder failed: %v", err)
	}
	if receipt.FiresAt != 60.0 {
		t.Errorf("Expected fire time 60, got %v", receipt.FiresAt)
	}

	// Materials were paid on queue, not on completion.
	st := u.StationsOwnedBy(1)[0]
	if _, ok := st.Inventory["iron_bar"]; ok {
		t.Errorf("Materials not deducted on queue: %v", st.Inventory)
	}
	if st.Build == nil || st.Build.ModuleID != "solar_array_1" {
		t.Errorf("Reservation not recorded: %+v", st.Build)
	}

	// Just before the fire time: still building.
	for i := 0; i < 59; i++ {
		u.Step(1.0)
	}
	u.Step(0.9)
	if len(u.StationsOwnedBy(1)[0].Modules) != 0 {
		t.Fatal("Module installed before its fire time")
	}

	// Crossing the fire time installs the module and clears the
	// reservation.
	applied := u.Step(1.0)
	if len(applied) != 1 {
		t.Fatalf("Expected 1 applied event, got %d", len(applied))
	}
	st = u.StationsOwnedBy(1)[0]
	if len(st.Modules) != 1 || st.Modules[0] != "solar_array_1" {
		t.Errorf("Module not installed: %v", st.Modules)
	}
	if st.Build != nil {
		t.Errorf("Reservation not cleared: %+v", st.Build)
	}

	// Further stepping never re-applies the event.
	for i := 0; i < 10; i++ {
		if extra := u.Step(1.0); len(extra) != 0 {
			t.Fatalf("Event applied twice: %+v", extra)
		}
	}
	if len(u.StationsOwnedBy(1)[0].Modules) != 1 {
		t.Error("Module duplicated on later ticks")
	}
}

func TestBuildOrderFailures(t *testing.T) {
	u := newTestUniverse(t)
	stationID := u.EnsurePlayerStation(1, "ada")

	cases := []struct {
		name      string
		stationID int64
		moduleID  string
		userID    int64
		wantKind  ErrorKind
	}{
		{"unknown station", 999, "solar_array_1", 1, KindNotFound},
		{"not the owner", stationID, "solar_array_1", 2, KindForbidden},
		{"unknown module", stationID, "warp_drive_9", 1, KindUnknownModule},
		{"insufficient materials", stationID, "solar_array_1", 1, KindInsufficientMaterials},
	}

	for _, tc := range cases {
		_, err := u.SubmitBuildOrder(tc.stationID, tc.moduleID, tc.userID)
		if err == nil {
			t.Errorf("%s: expected failure", tc.name)
			continue
		}
		oe, ok := AsOrderError(err)
		if !ok {
			t.Errorf("%s: not an order error: %v", tc.name, err)
			continue
		}
		if oe.Kind != tc.wantKind {
			t.Errorf("%s: expected kind %s, got %s", tc.name, tc.wantKind, oe.Kind)
		}
	}
}

func TestBuildInProgressBlocksSecondOrder(t *testing.T) {
	u := newTestUniverse(t)
	stationID := u.EnsurePlayerStation(1, "ada")
	grantSolarMaterials(t, u, stationID)
	grantSolarMaterials(t, u, stationID)

	if _, err := u.SubmitBuildOrder(stationID, "solar_array_1", 1); err != nil {
		t.Fatalf("First order failed: %v", err)
	}

	_, err := u.SubmitBuildOrder(stationID, "solar_array_1", 1)
	oe, ok := AsOrderError(err)
	if !ok || oe.Kind != KindBuildInProgress {
		t.Fatalf("Expected build_in_progress, got %v", err)
	}

	// One slot, one build: completing frees it.
	u.Step(60.0)
	if _, err := u.SubmitBuildOrder(stationID, "solar_array_1", 1); err != nil {
		t.Errorf("Order after completion failed: %v", err)
	}
}

func TestOverBudgetRejectsWithoutSpending(t *testing.T) {
	u := newTestUniverse(t)
	stationID := u.EnsurePlayerStation(1, "ada")

	// Fill all four base slots directly.
	for i := 0; i < 4; i++ {
		if err := u.AddModule(stationID, "solar_array_1"); err != nil {
			t.Fatalf("AddModule failed: %v", err)
		}
	}
	grantSolarMaterials(t, u, stationID)

	_, err := u.SubmitBuildOrder(stationID, "solar_array_1", 1)
	oe, ok := AsOrderError(err)
	if !ok || oe.Kind != KindOverBudget {
		t.Fatalf("Expected over_budget, got %v", err)
	}

	// Rejected validation must not touch the inventory.
	st := u.StationsOwnedBy(1)[0]
	if st.Inventory["iron_bar"] != 4.0 {
		t.Errorf("Rejected order spent materials: %v", st.Inventory)
	}
}

func TestSimTimeIsMonotonic(t *testing.T) {
	u := newTestUniverse(t)

	last := u.SimTime()
	for i := 0; i < 100; i++ {
		u.Step(0.25)
		now := u.SimTime()
		if now <= last {
			t.Fatalf("sim_time went backwards: %v -> %v", last, now)
		}
		last = now
	}

	// Zero and negative steps are ignored.
	u.Step(0)
	u.Step(-5)
	if u.SimTime() != last {
		t.Errorf("Non-positive step moved sim_time: %v -> %v", last, u.SimTime())
	}
}

func TestSnapshotRoundTripPreservesPendingEvents(t *testing.T) {
	u := newTestUniverse(t)
	stationID := u.EnsurePlayerStation(1, "ada")
	grantSolarMaterials(t, u, stationID)
	if _, err := u.SubmitBuildOrder(stationID, "solar_array_1", 1); err != nil {
		t.Fatalf("SubmitBuildOrder failed: %v", err)
	}
	u.Step(10.0)

	// Act: snapshot and restore into a second universe
	state, lastUpdate := u.CloneState()
	reg, _ := registry.Load()
	restored, err := Restore(state, lastUpdate, reg, logger.NewLogger())
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if restored.SimTime() != 10.0 {
		t.Errorf("sim_time lost in round trip: %v", restored.SimTime())
	}
	if !restored.LastUpdate().Equal(lastUpdate) {
		t.Errorf("last_update lost in round trip")
	}

	// The pending build still fires at its original sim time.
	restored.Step(49.9)
	if len(restored.StationsOwnedBy(1)[0].Modules) != 0 {
		t.Fatal("Restored event fired early")
	}
	restored.Step(0.1)
	if len(restored.StationsOwnedBy(1)[0].Modules) != 1 {
		t.Error("Restored event did not fire at its fire time")
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	reg, _ := registry.Load()
	log := logger.NewLogger()

	bad := NewState()
	bad.Version = 99
	if _, err := Restore(bad, time.Now(), reg, log); err == nil {
		t.Error("Expected error for unsupported snapshot version")
	}

	negative := NewState()
	negative.SimTime = -1
	if _, err := Restore(negative, time.Now(), reg, log); err == nil {
		t.Error("Expected error for negative sim_time")
	}
}

func TestCoarseStepEqualsFineSteps(t *testing.T) {
	// Both paths advance sim_time identically and drain the same events.
	fine := newTestUniverse(t)
	coarse := newTestUniverse(t)

	for _, u := range []*Universe{fine, coarse} {
		id := u.EnsurePlayerStation(1, "ada")
		grantSolarMaterials(t, u, id)
		if _, err := u.SubmitBuildOrder(id, "solar_array_1", 1); err != nil {
			t.Fatalf("SubmitBuildOrder failed: %v", err)
		}
	}

	for i := 0; i < 120; i++ {
		fine.Step(1.0)
	}
	coarse.Step(120.0)

	if fine.SimTime() != coarse.SimTime() {
		t.Errorf("sim_time diverged: fine=%v coarse=%v", fine.SimTime(), coarse.SimTime())
	}
	fineModules := fine.StationsOwnedBy(1)[0].Modules
	coarseModules := coarse.StationsOwnedBy(1)[0].Modules
	if len(fineModules) != 1 || len(coarseModules) != 1 {
		t.Errorf("Event resolution diverged: fine=%v coarse=%v", fineModules, coarseModules)
	}
}
