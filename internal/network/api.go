// Package network exposes the HTTP API and the WebSocket transport.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Cronos79/station-game/internal/auth"
	"github.com/Cronos79/station-game/internal/engine"
	"github.com/Cronos79/station-game/internal/infra/storage"
	"github.com/Cronos79/station-game/internal/platform/config"
	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/platform/metrics"
	"github.com/Cronos79/station-game/internal/registry"
	"github.com/Cronos79/station-game/internal/universe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-origin policy is enforced by the reverse proxy in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// API serves the player-facing HTTP endpoints and the WebSocket upgrade.
type API struct {
	cfg    *config.Config
	engine *engine.Engine
	uni    *universe.Universe
	hub    *Hub
	auth   *auth.Service
	reg    *registry.Registry
	logger *logger.Logger
}

func NewAPI(cfg *config.Config, eng *engine.Engine, hub *Hub, authSvc *auth.Service, reg *registry.Registry, log *logger.Logger) *API {
	return &API{
		cfg:    cfg,
		engine: eng,
		uni:    eng.Universe(),
		hub:    hub,
		auth:   authSvc,
		reg:    reg,
		logger: log,
	}
}

// RegisterRoutes sets up all API routes.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", a.handleRegister)
	mux.HandleFunc("/api/auth/login", a.handleLogin)
	mux.HandleFunc("/api/auth/logout", a.handleLogout)
	mux.HandleFunc("/api/auth/me", a.handleMe)

	mux.HandleFunc("/api/universe", a.handleUniverse)
	mux.HandleFunc("/api/stations", a.handleStations)
	mux.HandleFunc("/api/orders/build", a.handleBuildOrder)

	mux.HandleFunc("/api/registry/modules", a.handleModules)
	mux.HandleFunc("/api/registry/materials", a.handleMaterials)

	mux.HandleFunc("/ws", a.handleWebSocket)

	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	if a.cfg.Debug {
		a.logger.Warn("Debug endpoints enabled. Never ship with STATION_DEBUG=1.")
		mux.HandleFunc("/api/debug/grant", a.handleDebugGrant)
		mux.HandleFunc("/api/debug/add_module", a.handleDebugAddModule)
		mux.HandleFunc("/api/debug/remove_module", a.handleDebugRemoveModule)
		mux.HandleFunc("/api/debug/schedule", a.handleDebugSchedule)
		mux.HandleFunc("/api/debug/tick", a.handleDebugTick)
		mux.HandleFunc("/api/debug/save", a.handleDebugSave)
	}
}

// ---------------------------------------------------------
// Auth
// ---------------------------------------------------------

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates an account and logs it in.
// POST /api/auth/register
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if _, err := a.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		switch err {
		case auth.ErrUsernameTaken:
			a.jsonError(w, err.Error(), http.StatusConflict)
		case auth.ErrInvalidUsername, auth.ErrWeakPassword:
			a.jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			a.logger.Error("Register failed: %v", err)
			a.jsonError(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}
	a.login(w, r, req)
}

// handleLogin checks credentials and sets the session cookie.
// POST /api/auth/login
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	a.login(w, r, req)
}

func (a *API) login(w http.ResponseWriter, r *http.Request, req credentialsRequest) {
	user, session, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if err == auth.ErrInvalidCredentials {
			a.jsonError(w, err.Error(), http.StatusUnauthorized)
		} else {
			a.logger.Error("Login failed: %v", err)
			a.jsonError(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	stationID := a.uni.EnsurePlayerStation(user.ID, user.Username)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	a.jsonSuccess(w, map[string]interface{}{
		"user_id":    user.ID,
		"username":   user.Username,
		"station_id": stationID,
	})
}

// handleLogout invalidates the current session.
// POST /api/auth/logout
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		_ = a.auth.Logout(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	a.jsonSuccess(w, map[string]interface{}{"logged_out": true})
}

// handleMe reports the authenticated user.
// GET /api/auth/me
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(w, r)
	if user == nil {
		return
	}
	a.jsonSuccess(w, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
}

// currentUser authenticates the request from the session cookie. Writes a
// 401 and returns nil when the session is missing or stale.
func (a *API) currentUser(w http.ResponseWriter, r *http.Request) *storage.User {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		a.jsonError(w, "Not authenticated", http.StatusUnauthorized)
		return nil
	}
	user, err := a.auth.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		a.logger.Error("Session lookup failed: %v", err)
		a.jsonError(w, "Internal error", http.StatusInternalServerError)
		return nil
	}
	if user == nil {
		a.jsonError(w, "Not authenticated", http.StatusUnauthorized)
		return nil
	}
	return user
}

// ---------------------------------------------------------
// Universe reads
// ---------------------------------------------------------

// handleUniverse returns the full universe view.
// GET /api/universe
func (a *API) handleUniverse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.jsonSuccess(w, a.uni.View())
}

// handleStations returns the caller's stations with derived stats.
// GET /api/stations
func (a *API) handleStations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := a.currentUser(w, r)
	if user == nil {
		return
	}
	a.uni.EnsurePlayerStation(user.ID, user.Username)
	a.jsonSuccess(w, map[string]interface{}{
		"sim_time": a.uni.SimTime(),
		"stations": a.uni.StationsOwnedBy(user.ID),
	})
}

// handleModules lists buildable module definitions.
// GET /api/registry/modules
func (a *API) handleModules(w http.ResponseWriter, r *http.Request) {
	a.jsonSuccess(w, a.reg.Modules())
}

// handleMaterials lists material definitions.
// GET /api/registry/materials
func (a *API) handleMaterials(w http.ResponseWriter, r *http.Request) {
	a.jsonSuccess(w, a.reg.Materials())
}

// ---------------------------------------------------------
// Orders
// ---------------------------------------------------------

type buildOrderRequest struct {
	StationID int64  `json:"station_id"`
	ModuleID  string `json:"module_id"`
}

// handleBuildOrder validates and queues a module build.
// POST /api/orders/build
func (a *API) handleBuildOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := a.currentUser(w, r)
	if user == nil {
		return
	}
	var req buildOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := a.uni.SubmitBuildOrder(req.StationID, req.ModuleID, user.ID)
	metrics.Get().RecordOrder(err == nil)
	if err != nil {
		a.orderError(w, err)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{
		"station_id": req.StationID,
		"module_id":  req.ModuleID,
		"event_id":   receipt.EventID,
		"fires_at":   receipt.FiresAt,
	})
}

// orderError maps order validation failures to HTTP statuses.
func (a *API) orderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if oe, ok := universe.AsOrderError(err); ok {
		switch oe.Kind {
		case universe.KindNotFound, universe.KindUnknownModule:
			status = http.StatusNotFound
		case universe.KindForbidden:
			status = http.StatusForbidden
		case universe.KindBuildInProgress:
			status = http.StatusConflict
		case universe.KindInsufficientMaterials, universe.KindOverBudget:
			status = http.StatusBadRequest
		}
	}
	a.jsonError(w, err.Error(), status)
}

// ---------------------------------------------------------
// WebSocket
// ---------------------------------------------------------

// handleWebSocket upgrades an authenticated request to a live connection.
// GET /ws
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := a.currentUser(w, r)
	if user == nil {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Error("WebSocket upgrade failed: %v", err)
		return
	}
	client := NewClient(a.hub, conn, user.ID)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}

// ---------------------------------------------------------
// Debug endpoints (STATION_DEBUG=1 only)
// ---------------------------------------------------------

type debugStationRequest struct {
	StationID int64   `json:"station_id"`
	ModuleID  string  `json:"module_id,omitempty"`
	Material  string  `json:"material,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Delay     float64 `json:"delay,omitempty"`
}

func (a *API) decodeDebug(w http.ResponseWriter, r *http.Request) (debugStationRequest, bool) {
	var req debugStationRequest
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// POST /api/debug/grant
func (a *API) handleDebugGrant(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeDebug(w, r)
	if !ok {
		return
	}
	if err := a.uni.GrantMaterial(req.StationID, req.Material, req.Amount); err != nil {
		a.orderError(w, err)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{"granted": req.Amount, "material": req.Material})
}

// POST /api/debug/add_module
func (a *API) handleDebugAddModule(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeDebug(w, r)
	if !ok {
		return
	}
	if err := a.uni.AddModule(req.StationID, req.ModuleID); err != nil {
		a.orderError(w, err)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{"added": req.ModuleID})
}

// POST /api/debug/remove_module
func (a *API) handleDebugRemoveModule(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeDebug(w, r)
	if !ok {
		return
	}
	if err := a.uni.RemoveModule(req.StationID, req.ModuleID); err != nil {
		a.orderError(w, err)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{"removed": req.ModuleID})
}

// POST /api/debug/schedule
func (a *API) handleDebugSchedule(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeDebug(w, r)
	if !ok {
		return
	}
	receipt, err := a.uni.ScheduleBuildComplete(req.StationID, req.ModuleID, req.Delay)
	if err != nil {
		a.orderError(w, err)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{"event_id": receipt.EventID, "fires_at": receipt.FiresAt})
}

// handleDebugTick advances sim time manually, in fixed steps plus a
// remainder so event resolution matches the live loop.
// POST /api/debug/tick?seconds=N
func (a *API) handleDebugTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	seconds, err := strconv.ParseFloat(r.URL.Query().Get("seconds"), 64)
	if err != nil || seconds <= 0 || seconds > 86400 {
		a.jsonError(w, "seconds must be in (0, 86400]", http.StatusBadRequest)
		return
	}

	applied := 0
	remaining := seconds
	for remaining > 1e-9 {
		dt := a.cfg.TickDt
		if remaining < dt {
			dt = remaining
		}
		applied += len(a.uni.Step(dt))
		remaining -= dt
	}
	a.jsonSuccess(w, map[string]interface{}{
		"sim_time":       a.uni.SimTime(),
		"events_applied": applied,
	})
}

// POST /api/debug/save
func (a *API) handleDebugSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := a.engine.Save(r.Context()); err != nil {
		a.logger.Error("Manual save failed: %v", err)
		a.jsonError(w, "Save failed", http.StatusInternalServerError)
		return
	}
	a.jsonSuccess(w, map[string]interface{}{"saved": true, "at": time.Now().Format(time.RFC3339)})
}

// ---------------------------------------------------------
// Helpers
// ---------------------------------------------------------

// jsonError sends an error response.
func (a *API) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func (a *API) jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
