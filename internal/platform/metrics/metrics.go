// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers gameplay and server metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Economy
	Clicks              int64
	GeneratorsPurchased int64
	NutrientsSpent      float64
	OfflineCredits      int64
	OfflineNutrients    float64

	// Persistence
	Saves          int64
	SaveErrors     int64
	SaveLatencySum int64
	SaveLatencyMax int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64
	RateLimited         int64
	WSRejected          int64

	StartTime time.Time
	mu        sync.RWMutex
}

var collector = New()

// New returns an empty collector. Tests use their own instead of the global one.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

func storeMax(addr *int64, v int64) {
	for {
		cur := atomic.LoadInt64(addr)
		if v <= cur || atomic.CompareAndSwapInt64(addr, cur, v) {
			return
		}
	}
}

// RecordTick records a game loop frame.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))
	storeMax(&c.TickLatencyMax, int64(latency))

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordClick records a manual click.
func (c *Collector) RecordClick() {
	atomic.AddInt64(&c.Clicks, 1)
}

// RecordPurchase records units bought and what they cost.
func (c *Collector) RecordPurchase(units int, cost float64) {
	atomic.AddInt64(&c.GeneratorsPurchased, int64(units))
	c.mu.Lock()
	c.NutrientsSpent += cost
	c.mu.Unlock()
}

// RecordOffline records an offline catch-up credit.
func (c *Collector) RecordOffline(nutrients float64) {
	atomic.AddInt64(&c.OfflineCredits, 1)
	c.mu.Lock()
	c.OfflineNutrients += nutrients
	c.mu.Unlock()
}

// RecordSave records a save attempt.
func (c *Collector) RecordSave(latency time.Duration, err error) {
	atomic.AddInt64(&c.Saves, 1)
	atomic.AddInt64(&c.SaveLatencySum, int64(latency))
	storeMax(&c.SaveLatencyMax, int64(latency))
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

// RecordRateLimited records a client action dropped by the limiter.
func (c *Collector) RecordRateLimited() {
	atomic.AddInt64(&c.RateLimited, 1)
}

// RecordWSRejected records a connection refused at the client limit.
func (c *Collector) RecordWSRejected() {
	atomic.AddInt64(&c.WSRejected, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	saves := atomic.LoadInt64(&c.Saves)

	var tickAvg, saveAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if saves > 0 {
		saveAvg = float64(atomic.LoadInt64(&c.SaveLatencySum)) / float64(saves) / 1e6
	}

	lastTick := ""
	if !c.LastTickTime.IsZero() {
		lastTick = c.LastTickTime.Format(time.RFC3339)
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      lastTick,
		},

		"economy": map[string]interface{}{
			"clicks":               atomic.LoadInt64(&c.Clicks),
			"generators_purchased": atomic.LoadInt64(&c.GeneratorsPurchased),
			"nutrients_spent":      c.NutrientsSpent,
			"offline_credits":      atomic.LoadInt64(&c.OfflineCredits),
			"offline_nutrients":    c.OfflineNutrients,
		},

		"saves": map[string]interface{}{
			"count":          saves,
			"errors":         atomic.LoadInt64(&c.SaveErrors),
			"avg_latency_ms": saveAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.SaveLatencyMax)) / 1e6,
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
			"rate_limited":       atomic.LoadInt64(&c.RateLimited),
			"rejected":           atomic.LoadInt64(&c.WSRejected),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
		}
		gauge := func(name, help string, v float64) {
			fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %.4f\n\n", name, help, name, name, v)
		}

		counter("absurditree_tick_count", "Total game loop frames", atomic.LoadInt64(&c.TickCount))
		gauge("absurditree_tick_latency_max_ms", "Maximum frame latency", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)
		counter("absurditree_clicks_total", "Manual clicks", atomic.LoadInt64(&c.Clicks))
		counter("absurditree_generators_purchased_total", "Generator units bought", atomic.LoadInt64(&c.GeneratorsPurchased))
		counter("absurditree_offline_credits_total", "Offline catch-up credits", atomic.LoadInt64(&c.OfflineCredits))
		counter("absurditree_saves_total", "Save attempts", atomic.LoadInt64(&c.Saves))
		counter("absurditree_save_errors_total", "Failed saves", atomic.LoadInt64(&c.SaveErrors))
		gauge("absurditree_ws_connections", "Active WebSocket connections", float64(atomic.LoadInt64(&c.WSConnectionsActive)))

		fmt.Fprintf(w, "# HELP absurditree_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE absurditree_ws_messages_total counter\n")
		fmt.Fprintf(w, "absurditree_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "absurditree_ws_messages_total{direction=\"out\"} %d\n\n", atomic.LoadInt64(&c.WSMessagesOut))

		counter("absurditree_rate_limited_total", "Client actions dropped by the limiter", atomic.LoadInt64(&c.RateLimited))
		counter("absurditree_ws_rejected_total", "Connections refused at the client limit", atomic.LoadInt64(&c.WSRejected))

		c.mu.RLock()
		gauge("absurditree_nutrients_spent", "Nutrients spent on generators", c.NutrientsSpent)
		c.mu.RUnlock()
	}
}
