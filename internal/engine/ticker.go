package engine

import (
	"context"
	"time"

	"github.com/Cronos79/station-game/internal/platform/logger"
)

// Ticker drives the simulation heartbeat. It does NOT know about stations
// or orders, only real-time cadence: every interval it invokes the step
// callback with the fixed sim-time increment.
type Ticker struct {
	interval time.Duration
	dt       float64
	step     func(dt float64)
	logger   *logger.Logger
	stopChan chan struct{}
}

// NewTicker creates a ticker firing every tickDt real seconds, advancing
// sim time by tickDt per fire.
func NewTicker(tickDt float64, step func(dt float64), log *logger.Logger) *Ticker {
	return &Ticker{
		interval: time.Duration(tickDt * float64(time.Second)),
		dt:       tickDt,
		step:     step,
		logger:   log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the simulation loop. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Ticker started: %.2fs per tick", t.dt)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Ticker stopped by context.")
			return
		case <-t.stopChan:
			t.logger.Info("Ticker stopped manually.")
			return
		case <-ticker.C:
			t.step(t.dt)
		}
	}
}

// Stop gracefully stops the ticker.
func (t *Ticker) Stop() {
	close(t.stopChan)
}
