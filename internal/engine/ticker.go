package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

// DefaultTickInterval is how often the game world updates in real time.
const DefaultTickInterval = 100 * time.Millisecond

// Ticker drives Manager.Tick with the measured real time between frames.
type Ticker struct {
	manager  *Manager
	logger   *logger.Logger
	metrics  *metrics.Collector
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTicker creates a new game ticker. A non-positive interval uses DefaultTickInterval.
func NewTicker(m *Manager, interval time.Duration, log *logger.Logger, mc *metrics.Collector) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	if mc == nil {
		mc = metrics.Get()
	}
	return &Ticker{
		manager:  m,
		logger:   log,
		metrics:  mc,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the game loop and blocks until ctx is done or Stop is called. Call in a goroutine.
func (t *Ticker) Start(ctx context.Context) {
	t.logger.Info("Engine ticker started", zap.Duration("interval", t.interval))

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Engine ticker stopped by context")
			return
		case <-t.stopChan:
			t.logger.Info("Engine ticker stopped manually")
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			start := time.Now()
			t.manager.Tick(ctx, delta)
			t.metrics.RecordTick(time.Since(start))
		}
	}
}

// Stop gracefully stops the ticker. It is safe to call more than once.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopChan) })
}
