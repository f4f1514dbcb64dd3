package universe

import (
	"github.com/Cronos79/station-game/internal/domain/body"
	"github.com/Cronos79/station-game/internal/domain/station"
	"github.com/Cronos79/station-game/internal/events"
)

// StationView is a station plus its derived caps and usage. Derived stats
// are a projection: computed here, never stored.
type StationView struct {
	station.Station
	Derived station.Stats `json:"derived"`
}

// View is a consistent point-in-time copy of the universe for clients.
// It is a pure projection, never a mutation path.
type View struct {
	SimTime       float64        `json:"sim_time"`
	Stations      []StationView  `json:"stations"`
	Bodies        []body.Body    `json:"bodies"`
	PendingEvents []events.Event `json:"pending_events"`
}

// View snapshots the whole universe.
func (u *Universe) View() View {
	u.mu.RLock()
	defer u.mu.RUnlock()

	v := View{
		SimTime:       u.state.SimTime,
		Stations:      make([]StationView, 0, len(u.state.Stations)),
		Bodies:        make([]body.Body, 0, len(u.state.Bodies)),
		PendingEvents: u.state.Events.Pending(),
	}
	for _, st := range u.state.Stations {
		v.Stations = append(v.Stations, u.stationView(st))
	}
	for _, b := range u.state.Bodies {
		v.Bodies = append(v.Bodies, b.Clone())
	}
	return v
}

// StationsOwnedBy lists the stations of one player, with derived stats.
func (u *Universe) StationsOwnedBy(userID int64) []StationView {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var out []StationView
	for _, st := range u.state.Stations {
		if st.OwnerUserID == userID {
			out = append(out, u.stationView(st))
		}
	}
	return out
}

// StationOwner reports a station's owner, with existence.
func (u *Universe) StationOwner(stationID int64) (int64, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	st := u.findStation(stationID)
	if st == nil {
		return 0, false
	}
	return st.OwnerUserID, true
}

// stationView builds the read-only projection of one station. Caller holds
// at least the read lock.
func (u *Universe) stationView(st *station.Station) StationView {
	derived, err := station.ComputeStats(st.Modules, u.reg)
	if err != nil {
		// Persisted modules out of sync with the registry. Surface loudly,
		// serve base caps so the view stays usable.
		u.log.Error("station %d: %v", st.ID, err)
		derived = station.Stats{Caps: station.BaseCaps()}
	}
	return StationView{Station: *st.Clone(), Derived: derived}
}
