package engine

import (
	"time"

	"github.com/Cronos79/station-game/internal/platform/logger"
	"github.com/Cronos79/station-game/internal/universe"
)

// CatchUpResult summarizes a boot-time catch-up replay.
type CatchUpResult struct {
	Offline       float64 // wall-clock seconds the server was down
	Replayed      float64 // sim seconds actually advanced
	Ticks         int64   // fixed steps replayed (excluding the remainder)
	EventsApplied int
	DecisionsUsed int
}

// CatchUp replays the time the server spent offline, clamped to catchupMax.
// The replay goes through the same step function as live ticking, in tickDt
// increments plus a final remainder, so event ordering and idempotence are
// identical to normal operation. Offline time beyond the clamp is discarded
// for good; it never reaches sim_time.
//
// The decision budget bounds deferred decision work during the replay. Sim
// time and due events are never budgeted; every replayed second advances the
// clock and drains its events regardless of budget state.
func CatchUp(uni *universe.Universe, now time.Time, tickDt, catchupMax float64, budget *DecisionBudget, log *logger.Logger) CatchUpResult {
	var res CatchUpResult

	offline := now.Sub(uni.LastUpdate()).Seconds()
	if offline < 0 {
		offline = 0
	}
	res.Offline = offline

	catchup := offline
	if catchup > catchupMax {
		catchup = catchupMax
	}
	if catchup <= 0 {
		return res
	}

	log.Info("Catching up %.1fs of offline time (%.1fs elapsed, cap %.1fs)", catchup, offline, catchupMax)

	budgetWarned := false
	replayStep := func(dt float64) {
		applied := uni.Step(dt)
		res.EventsApplied += len(applied)
		for range applied {
			if budget.TryConsume() {
				res.DecisionsUsed++
			} else if !budgetWarned {
				log.Warn("Catch-up decision budget exhausted after %d decisions; deferring remaining decision work", budget.Used())
				budgetWarned = true
			}
		}
	}

	full := int64(catchup / tickDt)
	for i := int64(0); i < full; i++ {
		replayStep(tickDt)
	}
	res.Ticks = full
	res.Replayed = float64(full) * tickDt

	if remainder := catchup - res.Replayed; remainder > 1e-9 {
		replayStep(remainder)
		res.Replayed = catchup
	}

	log.Info("Catch-up complete: +%.1fs sim time, %d events applied, sim_time=%.1f", res.Replayed, res.EventsApplied, uni.SimTime())
	return res
}
