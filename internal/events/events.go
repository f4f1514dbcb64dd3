// Package events provides the timestamped event queue attached to the
// universe snapshot. An event is a typed future effect: it fires at a sim
// time, is applied exactly once, and is removed from the queue atomically
// with its effect.
package events

// Type tags an event variant.
type Type string

const (
	// TypeBuildModuleComplete installs the payload module on the payload
	// station and clears the station's build reservation.
	TypeBuildModuleComplete Type = "build_module_complete"
)

// BuildModuleCompletePayload carries everything needed to apply the
// completion idempotently.
type BuildModuleCompletePayload struct {
	StationID int64  `json:"station_id"`
	ModuleID  string `json:"module_id"`
}

// Event is a closed tagged variant: exactly one payload pointer is set,
// matching Type. Adding an event kind means adding a constant and a payload
// field here, then a case in the engine's apply switch. No string matching
// on loose maps.
type Event struct {
	ID     int64   `json:"id"`
	Type   Type    `json:"type"`
	FireAt float64 `json:"fire_at"` // sim time at/after which the event is due

	BuildModuleComplete *BuildModuleCompletePayload `json:"build_module_complete,omitempty"`
}

// NewBuildModuleComplete constructs the build-completion variant.
func NewBuildModuleComplete(id int64, fireAt float64, stationID int64, moduleID string) Event {
	return Event{
		ID:     id,
		Type:   TypeBuildModuleComplete,
		FireAt: fireAt,
		BuildModuleComplete: &BuildModuleCompletePayload{
			StationID: stationID,
			ModuleID:  moduleID,
		},
	}
}

// Clone deep-copies the event.
func (e Event) Clone() Event {
	cp := e
	if e.BuildModuleComplete != nil {
		p := *e.BuildModuleComplete
		cp.BuildModuleComplete = &p
	}
	return cp
}
