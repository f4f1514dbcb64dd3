package engine

import (
	"context"
	"sync"
	"time"

	"github.com/Cronos79/station-game/internal/events"
	"github.com/Cronos79/station-game/internal/infra/storage"
	"github.com/Cronos79/station-game/internal/platform/config"
	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/platform/metrics"
	"github.com/Cronos79/station-game/internal/registry"
	"github.com/Cronos79/station-game/internal/universe"
)

// Notifier receives the outcome of each tick for push delivery to clients.
// Implementations must not block; the tick loop calls this inline.
type Notifier interface {
	NotifyTick(simTime float64, applied []events.Event)
}

// Engine is the central orchestrator: it boots the universe from the
// snapshot store, replays offline time, runs the tick loop and keeps the
// snapshot fresh on the autosave schedule and at shutdown.
type Engine struct {
	cfg    *config.Config
	logger *logger.Logger
	reg    *registry.Registry
	uni    *universe.Universe
	store  storage.UniverseStore
	ticker *Ticker

	mu          sync.Mutex
	notifier    Notifier
	lastSaveSim float64
}

// NewEngine wires the engine. Call Boot before Start.
func NewEngine(cfg *config.Config, store storage.UniverseStore, reg *registry.Registry, log *logger.Logger) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: log,
		reg:    reg,
		store:  store,
		uni:    universe.New(reg, log),
	}
	e.ticker = NewTicker(cfg.TickDt, e.runTick, log)
	return e
}

// SetNotifier registers the push sink. Safe to call before Start only.
func (e *Engine) SetNotifier(n Notifier) {
	e.mu.Lock()
	e.notifier = n
	e.mu.Unlock()
}

// Universe exposes the simulation aggregate for the API and hub layers.
func (e *Engine) Universe() *universe.Universe {
	return e.uni
}

// Boot loads the persisted snapshot (or starts a fresh universe), replays
// offline time within the catch-up clamp and writes the recovered state
// back. Runs exactly once, before Start.
func (e *Engine) Boot(ctx context.Context) error {
	state, lastUpdate, err := e.store.Load(ctx)
	if err != nil {
		return err
	}

	if state == nil {
		e.logger.Info("No snapshot found, starting a fresh universe.")
	} else {
		uni, err := universe.Restore(*state, lastUpdate, e.reg, e.logger)
		if err != nil {
			return err
		}
		e.uni = uni
		e.logger.Info("Snapshot loaded: sim_time=%.1f, last_update=%s", uni.SimTime(), lastUpdate.Format(time.RFC3339))
	}

	e.uni.EnsureBootstrapWorld()

	budget := NewDecisionBudget(e.cfg.CatchupDecisionBudget)
	res := CatchUp(e.uni, time.Now(), e.cfg.TickDt, e.cfg.CatchupMax, budget, e.logger)
	if res.Ticks > 0 {
		metrics.Get().RecordCatchupTicks(res.Ticks)
	}

	if err := e.save(ctx); err != nil {
		return err
	}
	e.lastSaveSim = e.uni.SimTime()
	return nil
}

// Start spawns the tick loop. Boot must have completed.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("Starting universe engine...")
	go e.ticker.Start(ctx)
}

// Shutdown stops the tick loop and writes a final snapshot.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.ticker.Stop()
	e.logger.Info("Engine stopping, writing final snapshot...")
	return e.save(ctx)
}

// runTick advances the simulation one fixed step and handles the follow-on
// work: metrics, autosave and client notification.
func (e *Engine) runTick(dt float64) {
	start := time.Now()
	applied := e.uni.Step(dt)

	m := metrics.Get()
	m.RecordTick(time.Since(start))
	if len(applied) > 0 {
		m.RecordEventsApplied(len(applied))
	}

	e.mu.Lock()
	due := e.uni.SimTime()-e.lastSaveSim >= e.cfg.AutosaveDt
	notifier := e.notifier
	e.mu.Unlock()

	if due {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := e.save(ctx); err != nil {
			e.logger.Error("Autosave failed: %v", err)
		} else {
			e.mu.Lock()
			e.lastSaveSim = e.uni.SimTime()
			e.mu.Unlock()
		}
		cancel()
	}

	if notifier != nil {
		notifier.NotifyTick(e.uni.SimTime(), applied)
	}
}

// Save forces a snapshot write outside the autosave schedule. Used by the
// debug API.
func (e *Engine) Save(ctx context.Context) error {
	if err := e.save(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	e.lastSaveSim = e.uni.SimTime()
	e.mu.Unlock()
	return nil
}

func (e *Engine) save(ctx context.Context) error {
	state, lastUpdate := e.uni.CloneState()
	start := time.Now()
	err := e.store.Save(ctx, &state, lastUpdate)
	metrics.Get().RecordSave(time.Since(start), err)
	return err
}
