// Package network - events_api.go
// JSON viewer for the pending event queue. Lets players and operators see
// what is scheduled to fire and when, without exposing internal state.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Cronos79/station-game/internal/events"
	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/universe"
)

// EventsHandler provides the pending-events API.
type EventsHandler struct {
	uni    *universe.Universe
	logger *logger.Logger
}

// NewEventsHandler creates a new pending-events handler.
func NewEventsHandler(uni *universe.Universe, log *logger.Logger) *EventsHandler {
	return &EventsHandler{uni: uni, logger: log}
}

// PendingEvent is a sanitized scheduled event for public viewing.
type PendingEvent struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	FiresAt   float64 `json:"fires_at"`
	FiresIn   float64 `json:"fires_in"` // sim seconds until resolution
	StationID int64   `json:"station_id,omitempty"`
	ModuleID  string  `json:"module_id,omitempty"`
}

// PendingResponse is the API response for the pending-events viewer.
type PendingResponse struct {
	SimTime     float64        `json:"sim_time"`
	TotalEvents int            `json:"total_events"`
	FilteredBy  string         `json:"filtered_by,omitempty"`
	GeneratedAt string         `json:"generated_at"`
	Events      []PendingEvent `json:"events"`
}

// HandlePending returns the scheduled event queue in fire order.
// GET /api/events/pending?station_id=N&type=build_module_complete
func (eh *EventsHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Optional filters
	var stationID int64
	if s := r.URL.Query().Get("station_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			jsonError(w, "Invalid station_id", http.StatusBadRequest)
			return
		}
		stationID = id
	}
	eventType := r.URL.Query().Get("type")

	view := eh.uni.View()

	var pending []PendingEvent
	filterDesc := ""
	for _, e := range view.PendingEvents {
		pe := toPendingEvent(e, view.SimTime)
		if stationID != 0 && pe.StationID != stationID {
			continue
		}
		if eventType != "" && pe.Type != eventType {
			continue
		}
		pending = append(pending, pe)
	}
	if stationID != 0 {
		filterDesc = "station_id=" + strconv.FormatInt(stationID, 10)
	}
	if eventType != "" {
		if filterDesc != "" {
			filterDesc += ","
		}
		filterDesc += "type=" + eventType
	}

	resp := PendingResponse{
		SimTime:     view.SimTime,
		TotalEvents: len(pending),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      pending,
	}
	jsonOK(w, resp)
}

// toPendingEvent flattens the tagged event variants into the public shape.
func toPendingEvent(e events.Event, simTime float64) PendingEvent {
	pe := PendingEvent{
		ID:      e.ID,
		Type:    string(e.Type),
		FiresAt: e.FireAt,
		FiresIn: e.FireAt - simTime,
	}
	if e.BuildModuleComplete != nil {
		pe.StationID = e.BuildModuleComplete.StationID
		pe.ModuleID = e.BuildModuleComplete.ModuleID
	}
	return pe
}

// RegisterRoutes sets up the events API routes.
func (eh *EventsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/events/pending", eh.HandlePending)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func jsonOK(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
