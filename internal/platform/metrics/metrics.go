// Package metrics provides observability for the station server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance counters for the simulation and transport.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Simulation events
	EventsApplied int64
	CatchupTicks  int64

	// Orders
	OrdersAccepted int64
	OrdersRejected int64

	// Persistence
	SaveCount      int64
	SaveErrors     int64
	SaveLatencySum int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordEventsApplied records simulation events resolved during a step.
func (c *Collector) RecordEventsApplied(n int) {
	atomic.AddInt64(&c.EventsApplied, int64(n))
}

// RecordCatchupTicks records replayed ticks from an offline recovery run.
func (c *Collector) RecordCatchupTicks(n int64) {
	atomic.AddInt64(&c.CatchupTicks, n)
}

// RecordOrder records an order submission outcome.
func (c *Collector) RecordOrder(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.OrdersAccepted, 1)
	} else {
		atomic.AddInt64(&c.OrdersRejected, 1)
	}
}

// RecordSave records a snapshot write to the database.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.SaveCount, 1)
	atomic.AddInt64(&c.SaveLatencySum, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.SaveErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saveCount := atomic.LoadInt64(&c.SaveCount)

	var tickAvg, saveAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if saveCount > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatencySum)) / float64(saveCount) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"simulation": map[string]interface{}{
			"events_applied": atomic.LoadInt64(&c.EventsApplied),
			"catchup_ticks":  atomic.LoadInt64(&c.CatchupTicks),
		},

		"orders": map[string]interface{}{
			"accepted": atomic.LoadInt64(&c.OrdersAccepted),
			"rejected": atomic.LoadInt64(&c.OrdersRejected),
		},

		"persistence": map[string]interface{}{
			"saves":           saveCount,
			"save_errors":     atomic.LoadInt64(&c.SaveErrors),
			"avg_save_lat_ms": saveAvg,
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP station_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE station_tick_count counter\n")
		fmt.Fprintf(w, "station_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP station_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE station_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "station_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP station_events_applied Total simulation events applied\n")
		fmt.Fprintf(w, "# TYPE station_events_applied counter\n")
		fmt.Fprintf(w, "station_events_applied %d\n\n", atomic.LoadInt64(&c.EventsApplied))

		fmt.Fprintf(w, "# HELP station_catchup_ticks Total replayed catch-up ticks\n")
		fmt.Fprintf(w, "# TYPE station_catchup_ticks counter\n")
		fmt.Fprintf(w, "station_catchup_ticks %d\n\n", atomic.LoadInt64(&c.CatchupTicks))

		fmt.Fprintf(w, "# HELP station_orders_total Total build orders by outcome\n")
		fmt.Fprintf(w, "# TYPE station_orders_total counter\n")
		fmt.Fprintf(w, "station_orders_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.OrdersAccepted))
		fmt.Fprintf(w, "station_orders_total{outcome=\"rejected\"} %d\n\n", atomic.LoadInt64(&c.OrdersRejected))

		fmt.Fprintf(w, "# HELP station_saves Total snapshot writes\n")
		fmt.Fprintf(w, "# TYPE station_saves counter\n")
		fmt.Fprintf(w, "station_saves %d\n\n", atomic.LoadInt64(&c.SaveCount))

		fmt.Fprintf(w, "# HELP station_save_errors Total snapshot write errors\n")
		fmt.Fprintf(w, "# TYPE station_save_errors counter\n")
		fmt.Fprintf(w, "station_save_errors %d\n\n", atomic.LoadInt64(&c.SaveErrors))

		fmt.Fprintf(w, "# HELP station_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE station_ws_connections gauge\n")
		fmt.Fprintf(w, "station_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP station_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE station_ws_messages_total counter\n")
		fmt.Fprintf(w, "station_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "station_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
