package engine

import "time"

// DefaultGainWindow is how far back the per-second rate looks.
const DefaultGainWindow = 5 * time.Second

type gainRecord struct {
	at     time.Time
	amount float64
}

// GainTracker estimates nutrients per second over a sliding window.
// It is not safe for concurrent use; the Manager guards it.
type GainTracker struct {
	window  time.Duration
	records []gainRecord
}

// NewGainTracker creates a tracker. A non-positive window uses DefaultGainWindow.
func NewGainTracker(window time.Duration) *GainTracker {
	if window <= 0 {
		window = DefaultGainWindow
	}
	return &GainTracker{window: window}
}

// Window returns the averaging window.
func (g *GainTracker) Window() time.Duration {
	return g.window
}

// Record enqueues a gain made at the given time.
func (g *GainTracker) Record(at time.Time, amount float64) {
	g.records = append(g.records, gainRecord{at: at, amount: amount})
}

// Rate drops records older than the window and returns their sum divided by the
// full window, so a single click averages out instead of spiking the rate.
func (g *GainTracker) Rate(now time.Time) float64 {
	keep := 0
	for keep < len(g.records) && now.Sub(g.records[keep].at) > g.window {
		keep++
	}
	if keep > 0 {
		g.records = append(g.records[:0], g.records[keep:]...)
	}

	var sum float64
	for _, r := range g.records {
		sum += r.amount
	}
	return sum / g.window.Seconds()
}

// Reset discards all records.
func (g *GainTracker) Reset() {
	g.records = g.records[:0]
}

// Len returns the number of records currently held.
func (g *GainTracker) Len() int {
	return len(g.records)
}
