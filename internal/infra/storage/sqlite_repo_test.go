package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Cronos79/station-game/internal/domain/station"
	"github.com/Cronos79/station-game/internal/events"
	"github.com/Cronos79/station-game/internal/universe"
)

func openTestDB(t *testing.T) *SQLiteUniverseStore {
	t.Helper()
	db, err := InitSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := NewSQLiteUniverseStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteUniverseStore failed: %v", err)
	}
	return store
}

func TestLoadWithoutSnapshot(t *testing.T) {
	store := openTestDB(t)

	state, _, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if state != nil {
		t.Errorf("Expected no snapshot on a fresh database, got %+v", state)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	state := universe.NewState()
	state.SimTime = 123.5
	state.NextEventID = 3
	state.Stations = []*station.Station{{
		ID:          1,
		Name:        "Test Station",
		OwnerUserID: 42,
		System:      "Sol",
		Credits:     987.25,
		Inventory:   map[string]float64{"iron_ore": 4.5},
		Modules:     []string{"solar_array_1"},
		Build:       &station.Reservation{ModuleID: "habitat_pod_1", EventID: 2, FiresAt: 200.0},
	}}
	var q events.Queue
	q.Push(events.NewBuildModuleComplete(2, 200.0, 1, "habitat_pod_1"))
	state.Events = q

	lastUpdate := time.Now().Round(time.Millisecond)
	if err := store.Save(ctx, &state, lastUpdate); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, loadedUpdate, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Load returned no snapshot after Save")
	}

	if loaded.SimTime != 123.5 {
		t.Errorf("sim_time lost: %v", loaded.SimTime)
	}
	if len(loaded.Stations) != 1 {
		t.Fatalf("Stations lost: %d", len(loaded.Stations))
	}
	st := loaded.Stations[0]
	if st.Credits != 987.25 || st.Inventory["iron_ore"] != 4.5 {
		t.Errorf("Station fields lost: %+v", st)
	}
	if st.Build == nil || st.Build.EventID != 2 {
		t.Errorf("Reservation lost: %+v", st.Build)
	}
	if len(loaded.Events) != 1 || loaded.Events[0].FireAt != 200.0 {
		t.Errorf("Event queue lost: %+v", loaded.Events)
	}

	// Wall-clock stamp survives to sub-second precision.
	if delta := loadedUpdate.Sub(lastUpdate); delta > time.Millisecond || delta < -time.Millisecond {
		t.Errorf("last_update drifted by %v", delta)
	}
}

func TestSaveOverwritesSingleRow(t *testing.T) {
	store := openTestDB(t)
	ctx := context.Background()

	first := universe.NewState()
	first.SimTime = 10.0
	if err := store.Save(ctx, &first, time.Now()); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := universe.NewState()
	second.SimTime = 20.0
	if err := store.Save(ctx, &second, time.Now()); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, _, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SimTime != 20.0 {
		t.Errorf("Expected latest snapshot (20.0), got %v", loaded.SimTime)
	}
}

func TestUserAndSessionRepositories(t *testing.T) {
	db, err := InitSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitSQLite failed: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	users := NewSQLiteUserRepository(db)
	sessions := NewSQLiteSessionRepository(db)

	user, err := users.Create(ctx, "ada", "pbkdf2_sha256$1$00$00")
	if err != nil {
		t.Fatalf("Create user failed: %v", err)
	}

	byName, err := users.GetByUsername(ctx, "ada")
	if err != nil || byName == nil || byName.ID != user.ID {
		t.Fatalf("GetByUsername returned %v, %v", byName, err)
	}
	missing, err := users.GetByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("Missing user should read as (nil, nil), got %v, %v", missing, err)
	}

	now := time.Now()
	session := Session{Token: "tok", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := sessions.Create(ctx, session); err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	got, err := sessions.Get(ctx, "tok")
	if err != nil || got == nil || got.UserID != user.ID {
		t.Fatalf("Get session returned %v, %v", got, err)
	}

	// Expired sessions read as absent.
	expired := Session{Token: "old", UserID: user.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	if err := sessions.Create(ctx, expired); err != nil {
		t.Fatalf("Create expired session failed: %v", err)
	}
	gone, err := sessions.Get(ctx, "old")
	if err != nil || gone != nil {
		t.Errorf("Expired session should read as absent, got %v, %v", gone, err)
	}

	if err := sessions.Delete(ctx, "tok"); err != nil {
		t.Fatalf("Delete session failed: %v", err)
	}
	deleted, err := sessions.Get(ctx, "tok")
	if err != nil || deleted != nil {
		t.Errorf("Deleted session should read as absent, got %v, %v", deleted, err)
	}
}
