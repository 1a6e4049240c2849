package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/generator"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTickerManager(t *testing.T, mc *metrics.Collector) *Manager {
	t.Helper()
	m, err := NewManager(Options{Settings: DefaultSettings(), Catalog: generator.DefaultCatalog(), Metrics: mc})
	require.NoError(t, err)
	m.SetAutoProduction(100)
	return m
}

func TestTickerDrivesManager(t *testing.T) {
	mc := metrics.New()
	m := newTickerManager(t, mc)
	tk := NewTicker(m, 5*time.Millisecond, nil, mc)

	done := make(chan struct{})
	go func() {
		tk.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		return m.Snapshot().LifetimeNutrients > 0
	}, 2*time.Second, 5*time.Millisecond)

	tk.Stop()
	tk.Stop()
	<-done
	assert.Positive(t, atomic.LoadInt64(&mc.TickCount))
}

func TestTickerStopsOnContextCancel(t *testing.T) {
	m := newTickerManager(t, metrics.New())
	tk := NewTicker(m, time.Millisecond, nil, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker did not stop after cancel")
	}
}

func TestNewTickerDefaultsInterval(t *testing.T) {
	tk := NewTicker(nil, 0, nil, metrics.New())
	assert.Equal(t, DefaultTickInterval, tk.interval)
}
