package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/IdleAbsurditree/internal/config"
	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

func testConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = driver
	switch driver {
	case config.DriverSQLite:
		cfg.Storage.Path = filepath.Join(dir, "game.db")
	case config.DriverFile:
		cfg.Storage.Path = filepath.Join(dir, "savegame.json")
		cfg.Storage.LedgerPath = filepath.Join(dir, "events.db")
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, clock engine.Clock) *App {
	t.Helper()
	a, err := New(cfg, Options{Logger: logger.NewNop(), Metrics: metrics.New(), Clock: clock})
	require.NoError(t, err)
	return a
}

func TestBootFreshMemoryGame(t *testing.T) {
	a := newApp(t, testConfig(t, config.DriverMemory), nil)
	ctx := context.Background()

	report, err := a.Boot(ctx)
	require.NoError(t, err)
	assert.False(t, report.Credited())
	assert.Equal(t, []int{0, 0}, a.Manager.Data().GeneratorCounts)
	require.NoError(t, a.Close(ctx))
}

func TestRestartCreditsOfflineTime(t *testing.T) {
	for _, driver := range []string{config.DriverFile, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)
			clock := engine.NewManualClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))

			a := newApp(t, cfg, clock)
			_, err := a.Boot(ctx)
			require.NoError(t, err)
			a.Manager.AddNutrients(10, engine.SourceClick)
			_, err = a.Manager.BuyGenerator(ctx, 0)
			require.NoError(t, err)
			require.NoError(t, a.Close(ctx))

			clock.Advance(10 * time.Minute)
			b := newApp(t, cfg, clock)
			report, err := b.Boot(ctx)
			require.NoError(t, err)
			assert.InDelta(t, 600, report.Nutrients, 1e-2)
			assert.Equal(t, 1, b.Manager.GeneratorCount(0))

			h, err := b.History().PurchaseHistory(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, h.TotalUnits)

			recap, err := b.History().GenerateRecap(ctx, 50)
			require.NoError(t, err)
			assert.NotEmpty(t, recap)
			require.NoError(t, b.Close(ctx))
		})
	}
}

func TestFileDriverWithoutLedger(t *testing.T) {
	cfg := testConfig(t, config.DriverFile)
	cfg.Storage.LedgerPath = ""
	a := newApp(t, cfg, nil)
	ctx := context.Background()

	_, err := a.Boot(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Manager.Save(ctx))

	recap, err := a.History().GenerateRecap(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, recap, "events are still kept in memory")
	require.NoError(t, a.Close(ctx))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = "tape"
	_, err := New(cfg, Options{Logger: logger.NewNop()})
	assert.Error(t, err)
}
