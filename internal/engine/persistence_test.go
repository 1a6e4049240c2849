package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/generator"
	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
	"github.com/MRamiBalles/IdleAbsurditree/internal/infra/storage"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

func TestSaveStampsLastSaveTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.AddNutrients(42, "test")

	require.NoError(t, f.m.Save(ctx))
	saved, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.0, saved.AvailableNutrients)
	assert.InDelta(t, gamedata.UnixSeconds(testStart), saved.LastSaveTime, 1e-6)
	assert.Equal(t, int64(1), f.mc.Saves)
}

func TestLoadRestoresSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.AddNutrients(30, "test")
	_, err := f.m.BuyGenerator(ctx, 0)
	require.NoError(t, err)
	require.NoError(t, f.m.Save(ctx))

	m2 := f.newManager(t)
	require.NoError(t, m2.Load(ctx))
	s := m2.Snapshot()
	assert.Equal(t, 20.0, s.AvailableNutrients)
	assert.Equal(t, 1, m2.GeneratorCount(0))
	assert.Equal(t, 1.0, s.AutoProductionPerSecond)
	assert.Len(t, f.log.GetByType(events.EventTypeGameLoaded), 1)
}

func TestLoadWithoutSaveStartsFresh(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.m.Load(context.Background()))
	d := f.m.Data()
	assert.Equal(t, []int{0, 0}, d.GeneratorCounts)
	assert.Zero(t, d.LifetimeNutrients)
	assert.Empty(t, f.log.GetByType(events.EventTypeGameLoaded))
}

func TestLoadNormalizesGeneratorCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, &gamedata.GameData{GeneratorCounts: []int{3}}))

	require.NoError(t, f.m.Load(ctx))
	assert.Equal(t, []int{3, 0}, f.m.Data().GeneratorCounts)

	require.NoError(t, f.store.Save(ctx, &gamedata.GameData{GeneratorCounts: []int{1, 2, 3, 4}}))
	require.NoError(t, f.m.Load(ctx))
	assert.Equal(t, []int{1, 2}, f.m.Data().GeneratorCounts)
}

func TestLoadCorruptSaveStartsFresh(t *testing.T) {
	m, err := NewManager(Options{
		Settings: DefaultSettings(),
		Catalog:  generator.DefaultCatalog(),
		Store:    failingStore{loadErr: fmt.Errorf("save x: %w", storage.ErrCorruptSave)},
		Metrics:  metrics.New(),
	})
	require.NoError(t, err)
	m.AddNutrients(5, "test")

	require.NoError(t, m.Load(context.Background()))
	assert.Zero(t, m.Snapshot().AvailableNutrients)
}

func TestLoadIOErrorKeepsState(t *testing.T) {
	m, err := NewManager(Options{
		Settings: DefaultSettings(),
		Catalog:  generator.DefaultCatalog(),
		Store:    failingStore{loadErr: errors.New("permission denied")},
		Metrics:  metrics.New(),
	})
	require.NoError(t, err)
	m.AddNutrients(5, "test")

	assert.Error(t, m.Load(context.Background()))
	assert.Equal(t, 5.0, m.Snapshot().AvailableNutrients)
}

func TestLoadResetsRateWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		f.m.Click()
	}
	require.NoError(t, f.m.Save(ctx))
	require.NoError(t, f.m.Load(ctx))
	assert.Zero(t, f.m.tracker.Len())
}

// savedWithProduction saves a game producing rate per second at testStart.
func savedWithProduction(t *testing.T, f *fixture, rate int) {
	t.Helper()
	require.NoError(t, f.m.SetGeneratorCount(0, rate))
	require.NoError(t, f.m.Save(context.Background()))
}

func TestProcessOfflineGains(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	savedWithProduction(t, f, 3)

	f.clock.Advance(time.Hour)
	m2 := f.newManager(t)
	require.NoError(t, m2.Load(ctx))
	report, err := m2.ProcessOfflineGains(ctx)
	require.NoError(t, err)

	assert.True(t, report.Credited())
	assert.False(t, report.Capped)
	assert.InDelta(t, 3600, report.SecondsAway, 1e-3)
	assert.InDelta(t, 3*3600, report.Nutrients, 1e-2)

	s := m2.Snapshot()
	assert.InDelta(t, 3*3600, s.AvailableNutrients, 1e-2)
	assert.InDelta(t, 3*3600, s.LifetimeNutrients, 1e-2)
	assert.Zero(t, s.NutrientsPerSecond, "offline credit stays out of the rate window")
	assert.InDelta(t, gamedata.UnixSeconds(f.clock.Now()), m2.Data().LastSaveTime, 1e-6)

	assert.Len(t, f.log.GetByType(events.EventTypeOfflineProgress), 1)
	assert.Equal(t, int64(1), f.mc.OfflineCredits)

	saved, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3*3600, saved.AvailableNutrients, 1e-2, "catch-up is saved")
}

func TestProcessOfflineGainsIsCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	savedWithProduction(t, f, 2)

	f.clock.Advance(48 * time.Hour)
	m2 := f.newManager(t)
	require.NoError(t, m2.Load(ctx))
	report, err := m2.ProcessOfflineGains(ctx)
	require.NoError(t, err)

	assert.True(t, report.Capped)
	assert.Equal(t, 86400.0, report.SecondsCredited)
	assert.Equal(t, 2*86400.0, report.Nutrients)
}

func TestProcessOfflineGainsWithoutProduction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.m.Save(ctx))

	f.clock.Advance(time.Hour)
	report, err := f.m.ProcessOfflineGains(ctx)
	require.NoError(t, err)
	assert.False(t, report.Credited())
	assert.Zero(t, f.m.Snapshot().AvailableNutrients)
	assert.InDelta(t, gamedata.UnixSeconds(f.clock.Now()), f.m.Data().LastSaveTime, 1e-6)
}

func TestProcessOfflineGainsClockWentBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	savedWithProduction(t, f, 5)

	f.clock.Set(testStart.Add(-time.Hour))
	report, err := f.m.ProcessOfflineGains(ctx)
	require.NoError(t, err)
	assert.False(t, report.Credited())
	assert.Zero(t, f.m.Snapshot().AvailableNutrients)
}

func TestResetMovesSaveToTrash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.m.AddNutrients(500, "test")
	_, err := f.m.BuyGenerator(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, f.m.Save(ctx))

	require.NoError(t, f.m.Reset(ctx))

	d := f.m.Data()
	assert.Zero(t, d.AvailableNutrients)
	assert.Zero(t, d.LifetimeNutrients)
	assert.Zero(t, d.AutoProductionPerSecond)
	assert.Equal(t, []int{0, 0}, d.GeneratorCounts)

	trashed := f.store.Trashed()
	require.NotNil(t, trashed)
	assert.Equal(t, 400.0, trashed.AvailableNutrients)

	saved, err := f.store.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, saved.LifetimeNutrients)
	assert.Len(t, f.log.GetByType(events.EventTypeGameReset), 1)
}

func TestCloseSaves(t *testing.T) {
	f := newFixture(t)
	f.m.AddNutrients(1, "test")
	require.NoError(t, f.m.Close(context.Background()))
	assert.Equal(t, 1, f.store.Saves())
}

// flakyStore wraps a MemoryStore whose Load can be made to fail.
type flakyStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	loadErr error
}

func (s *flakyStore) setLoadErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

func (s *flakyStore) Load(ctx context.Context) (*gamedata.GameData, error) {
	s.mu.Lock()
	err := s.loadErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.Load(ctx)
}

func TestFailedLoadKeepsStoredSave(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	require.NoError(t, store.Save(ctx, &gamedata.GameData{
		AvailableNutrients: 12345,
		LifetimeNutrients:  20000,
		GeneratorCounts:    []int{7, 3},
		LastSaveTime:       gamedata.UnixSeconds(testStart),
	}))
	store.setLoadErr(errors.New("input/output error"))

	m, err := NewManager(Options{
		Settings: DefaultSettings(),
		Catalog:  generator.DefaultCatalog(),
		Store:    store,
		Metrics:  metrics.New(),
		Clock:    NewManualClock(testStart),
	})
	require.NoError(t, err)

	require.Error(t, m.Load(ctx))
	assert.ErrorIs(t, m.Save(ctx), ErrSaveBlocked)
	m.Tick(ctx, DefaultSettings().AutosaveInterval)
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, 1, store.Saves(), "nothing overwrote the save")

	store.setLoadErr(nil)
	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12345.0, saved.AvailableNutrients)
	assert.Equal(t, []int{7, 3}, saved.GeneratorCounts)

	require.NoError(t, m.Load(ctx))
	assert.Equal(t, 12345.0, m.Snapshot().AvailableNutrients)
	require.NoError(t, m.Save(ctx))
	assert.Equal(t, 2, store.Saves())
}

func TestResetClearsSaveBlock(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore(), loadErr: errors.New("input/output error")}
	m, err := NewManager(Options{
		Settings: DefaultSettings(),
		Catalog:  generator.DefaultCatalog(),
		Store:    store,
		Metrics:  metrics.New(),
		Clock:    NewManualClock(testStart),
	})
	require.NoError(t, err)

	require.Error(t, m.Load(ctx))
	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, 1, store.Saves())
}

// stampStore records the LastSaveTime of every write in order.
type stampStore struct {
	*storage.MemoryStore
	mu     sync.Mutex
	stamps []float64
}

func (s *stampStore) Save(ctx context.Context, d *gamedata.GameData) error {
	s.mu.Lock()
	s.stamps = append(s.stamps, d.LastSaveTime)
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, d)
}

func TestConcurrentSavesWriteInStampOrder(t *testing.T) {
	ctx := context.Background()
	clock := NewManualClock(testStart)
	store := &stampStore{MemoryStore: storage.NewMemoryStore()}
	m, err := NewManager(Options{
		Settings: DefaultSettings(),
		Catalog:  generator.DefaultCatalog(),
		Store:    store,
		Metrics:  metrics.New(),
		Clock:    clock,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			assert.NoError(t, m.Save(ctx))
		}()
	}
	wg.Wait()

	require.Len(t, store.stamps, 50)
	assert.True(t, sort.Float64sAreSorted(store.stamps), "stamps %v", store.stamps)
	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.stamps[len(store.stamps)-1], saved.LastSaveTime)
}
