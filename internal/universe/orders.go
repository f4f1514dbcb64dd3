package universe

import (
	"fmt"
	"strings"

	"github.com/Cronos79/station-game/internal/domain/station"
	"github.com/Cronos79/station-game/internal/events"
)

// Receipt is returned for an admitted order: which event it produced and
// when that event fires.
type Receipt struct {
	EventID int64   `json:"event_id"`
	FiresAt float64 `json:"fires_at"`
}

// SubmitBuildOrder validates and admits a build-module order for the given
// station on behalf of the requesting player.
//
// Preconditions are checked in order, short-circuiting on the first
// failure; a failed order leaves the universe untouched. On success, as one
// state transition: the full material cost is deducted now (pay-on-queue),
// the station's single build reservation is taken, and a
// build_module_complete event is enqueued at sim_time + build_time.
func (u *Universe) SubmitBuildOrder(stationID int64, moduleID string, userID int64) (Receipt, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.findStation(stationID)
	if st == nil {
		return Receipt{}, orderErr(KindNotFound, "station_not_found")
	}
	if st.OwnerUserID != userID {
		return Receipt{}, orderErr(KindForbidden, "not_station_owner")
	}

	def, ok := u.reg.Module(moduleID)
	if !ok {
		return Receipt{}, orderErr(KindUnknownModule, "module_not_found")
	}

	if st.Build != nil {
		return Receipt{}, orderErr(KindBuildInProgress, "build_in_progress")
	}

	for matID, amount := range def.Cost {
		if st.Inventory[matID] < amount {
			return Receipt{}, orderErr(KindInsufficientMaterials, "insufficient_materials")
		}
	}

	preview, err := station.PreviewStats(st.Modules, moduleID, u.reg)
	if err != nil {
		// Registry disagrees with installed state: internal error, not an
		// order failure the player can fix.
		return Receipt{}, fmt.Errorf("build order preview: %w", err)
	}
	if violated := preview.OverBudget(); len(violated) > 0 {
		return Receipt{}, orderErr(KindOverBudget, "over_budget: "+strings.Join(violated, ", "))
	}

	// Commit. TrySpend cannot fail after the cost check above.
	if !st.TrySpend(def.Cost) {
		return Receipt{}, orderErr(KindInsufficientMaterials, "insufficient_materials")
	}

	eventID := u.state.NextEventID
	u.state.NextEventID++
	fireAt := u.state.SimTime + def.BuildTime

	st.Build = &station.Reservation{
		ModuleID: moduleID,
		EventID:  eventID,
		FiresAt:  fireAt,
	}
	u.state.Events.Push(events.NewBuildModuleComplete(eventID, fireAt, st.ID, moduleID))

	u.log.Event("BUILD_MODULE_QUEUED", fmt.Sprintf("station:%d", st.ID),
		fmt.Sprintf("%s fires_at=%.1f event=%d", moduleID, fireAt, eventID))

	return Receipt{EventID: eventID, FiresAt: fireAt}, nil
}

// GrantMaterial adds amount of a material to a station's inventory.
// Debug-only path; the validator never grants.
func (u *Universe) GrantMaterial(stationID int64, materialID string, amount float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.findStation(stationID)
	if st == nil {
		return orderErr(KindNotFound, "station_not_found")
	}
	if !u.reg.IsValidMaterial(materialID) {
		return orderErr(KindNotFound, "material_not_found")
	}
	if amount <= 0 {
		return orderErr(KindNotFound, "amount_must_be_positive")
	}
	st.Grant(materialID, amount)
	return nil
}

// AddModule installs a module immediately, bypassing cost, reservation and
// budget checks. Debug-only path.
func (u *Universe) AddModule(stationID int64, moduleID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.findStation(stationID)
	if st == nil {
		return orderErr(KindNotFound, "station_not_found")
	}
	if _, ok := u.reg.Module(moduleID); !ok {
		return orderErr(KindUnknownModule, "module_not_found")
	}
	st.Modules = append(st.Modules, moduleID)
	return nil
}

// RemoveModule uninstalls the first occurrence of a module. Debug-only path.
func (u *Universe) RemoveModule(stationID int64, moduleID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.findStation(stationID)
	if st == nil {
		return orderErr(KindNotFound, "station_not_found")
	}
	for i, id := range st.Modules {
		if id == moduleID {
			st.Modules = append(st.Modules[:i], st.Modules[i+1:]...)
			return nil
		}
	}
	return orderErr(KindNotFound, "module_not_installed")
}

// ScheduleBuildComplete enqueues a build-completion event after delay sim
// seconds without paying costs or taking the reservation. Debug-only path
// for exercising the queue.
func (u *Universe) ScheduleBuildComplete(stationID int64, moduleID string, delay float64) (Receipt, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	st := u.findStation(stationID)
	if st == nil {
		return Receipt{}, orderErr(KindNotFound, "station_not_found")
	}
	if _, ok := u.reg.Module(moduleID); !ok {
		return Receipt{}, orderErr(KindUnknownModule, "module_not_found")
	}
	if delay < 0 {
		return Receipt{}, orderErr(KindNotFound, "delay_must_be_non_negative")
	}

	eventID := u.state.NextEventID
	u.state.NextEventID++
	fireAt := u.state.SimTime + delay
	u.state.Events.Push(events.NewBuildModuleComplete(eventID, fireAt, st.ID, moduleID))
	return Receipt{EventID: eventID, FiresAt: fireAt}, nil
}
