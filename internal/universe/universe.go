// Package universe holds the root aggregate of the persistent world: the
// sim clock, stations, celestial bodies, and the pending event queue.
//
// CONCURRENCY RULE: one mutex guards the whole aggregate. Tick advancement,
// event application, and order admission all mutate through that single
// path; cross-field invariants (like the budget check) are only safe because
// nothing else can interleave. Reads hand out deep copies.
package universe

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Cronos79/station-game/internal/domain/body"
	"github.com/Cronos79/station-game/internal/domain/station"
	"github.com/Cronos79/station-game/internal/events"
	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/registry"
)

// StateVersion is bumped when the snapshot layout changes incompatibly.
const StateVersion = 1

// State is the serializable universe snapshot. Derived stats are never part
// of it; they are recomputed on read.
type State struct {
	Version     int                `json:"version"`
	SimTime     float64            `json:"sim_time"`
	Stations    []*station.Station `json:"stations"`
	Bodies      []body.Body        `json:"bodies"`
	Events      events.Queue       `json:"events"`
	NextEventID int64              `json:"next_event_id"`
}

// NewState returns an empty fresh-boot state with sim_time = 0.
func NewState() State {
	return State{
		Version:     StateVersion,
		NextEventID: 1,
	}
}

// Universe owns the mutable world state.
type Universe struct {
	mu  sync.RWMutex
	reg *registry.Registry
	log *logger.Logger

	state      State
	lastUpdate time.Time // wall clock stamped on every step and persisted
}

// New creates a fresh universe (first boot, no snapshot on disk).
func New(reg *registry.Registry, log *logger.Logger) *Universe {
	return &Universe{
		reg:        reg,
		log:        log,
		state:      NewState(),
		lastUpdate: time.Now(),
	}
}

// Restore rebuilds a universe from a persisted snapshot. Old saves are
// migrated in place: missing maps are materialized, stale inventory entries
// cleaned, and the event queue re-sorted so queue invariants hold even if
// the stored ordering was disturbed.
func Restore(state State, lastUpdate time.Time, reg *registry.Registry, log *logger.Logger) (*Universe, error) {
	if state.Version != StateVersion {
		return nil, fmt.Errorf("universe: unsupported snapshot version %d", state.Version)
	}
	if state.SimTime < 0 {
		return nil, fmt.Errorf("universe: negative sim_time %f in snapshot", state.SimTime)
	}

	for _, st := range state.Stations {
		if st.Inventory == nil {
			st.Inventory = make(map[string]float64)
		}
		st.CleanInventory(reg.IsValidMaterial)
	}

	sort.SliceStable(state.Events, func(i, j int) bool {
		if state.Events[i].FireAt != state.Events[j].FireAt {
			return state.Events[i].FireAt < state.Events[j].FireAt
		}
		return state.Events[i].ID < state.Events[j].ID
	})

	if state.NextEventID < 1 {
		state.NextEventID = 1
	}
	for _, e := range state.Events {
		if e.ID >= state.NextEventID {
			state.NextEventID = e.ID + 1
		}
	}

	return &Universe{
		reg:        reg,
		log:        log,
		state:      state,
		lastUpdate: lastUpdate,
	}, nil
}

// Step advances sim time by exactly dt seconds and drains every event whose
// fire time is now due, applying each at most once. It is the only way
// sim_time moves. Returns the events applied during this step.
func (u *Universe) Step(dt float64) []events.Event {
	if dt <= 0 {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.state.SimTime += dt

	var applied []events.Event
	for {
		// Pop and apply inside the same critical section: removal from the
		// queue and the event's effect are one atomic state transition,
		// which is what makes application idempotent.
		e, ok := u.state.Events.PopDue(u.state.SimTime)
		if !ok {
			break
		}
		u.applyEvent(e)
		applied = append(applied, e)
	}

	u.lastUpdate = time.Now()
	return applied
}

// applyEvent mutates the world for one due event. Caller holds the lock.
func (u *Universe) applyEvent(e events.Event) {
	switch e.Type {
	case events.TypeBuildModuleComplete:
		p := e.BuildModuleComplete
		if p == nil {
			u.log.Error("event %d tagged %s has no payload, dropped", e.ID, e.Type)
			return
		}
		st := u.findStation(p.StationID)
		if st == nil {
			// Internal inconsistency, not retried: the station is gone.
			u.log.Warn("event %d dropped: station %d no longer exists", e.ID, p.StationID)
			return
		}
		st.Modules = append(st.Modules, p.ModuleID)
		st.Build = nil
		u.log.Event("BUILD_MODULE_COMPLETE", fmt.Sprintf("station:%d", st.ID), "installed "+p.ModuleID)

	default:
		u.log.Error("event %d has unknown type %q, dropped", e.ID, e.Type)
	}
}

// findStation returns the mutable station with the given id. Caller holds
// the lock.
func (u *Universe) findStation(id int64) *station.Station {
	for _, st := range u.state.Stations {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// SimTime returns the current sim clock.
func (u *Universe) SimTime() float64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.state.SimTime
}

// LastUpdate returns the wall-clock timestamp of the last step or restore.
func (u *Universe) LastUpdate() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastUpdate
}

// CloneState deep-copies the snapshot for persistence. The copy shares
// nothing with live state, so saving can proceed without holding the lock.
func (u *Universe) CloneState() (State, time.Time) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	cp := State{
		Version:     u.state.Version,
		SimTime:     u.state.SimTime,
		NextEventID: u.state.NextEventID,
		Stations:    make([]*station.Station, 0, len(u.state.Stations)),
		Bodies:      make([]body.Body, 0, len(u.state.Bodies)),
		Events:      u.state.Events.Pending(),
	}
	for _, st := range u.state.Stations {
		cp.Stations = append(cp.Stations, st.Clone())
	}
	for _, b := range u.state.Bodies {
		cp.Bodies = append(cp.Bodies, b.Clone())
	}
	return cp, u.lastUpdate
}

// EnsureBootstrapWorld seeds the starter system layout when the universe has
// no bodies at all. Safe to call multiple times. Reports whether it changed
// anything.
func (u *Universe) EnsureBootstrapWorld() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.state.Bodies) > 0 {
		return false
	}
	u.state.Bodies = body.BootstrapSol()
	u.log.Info("bootstrapped starter world: %d bodies in Sol", len(u.state.Bodies))
	return true
}

// EnsurePlayerStation returns the id of the station owned by userID,
// creating one (with starter credits and inventory) if none exists.
// One station per player, never deleted.
func (u *Universe) EnsurePlayerStation(userID int64, username string) int64 {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, st := range u.state.Stations {
		if st.OwnerUserID == userID {
			if st.Inventory == nil {
				st.Inventory = make(map[string]float64)
			}
			st.CleanInventory(u.reg.IsValidMaterial)
			return st.ID
		}
	}

	var nextID int64 = 1
	for _, st := range u.state.Stations {
		if st.ID >= nextID {
			nextID = st.ID + 1
		}
	}

	st := &station.Station{
		ID:          nextID,
		Name:        username + "'s Station",
		OwnerUserID: userID,
		System:      "Sol",
		Credits:     1000.0,
		Inventory: map[string]float64{
			"iron_ore":   5.0,
			"copper_ore": 2.0,
		},
	}
	u.state.Stations = append(u.state.Stations, st)
	u.log.Event("STATION_CREATED", fmt.Sprintf("user:%d", userID), st.Name)
	return st.ID
}
