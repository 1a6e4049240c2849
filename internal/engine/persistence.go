package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
	"github.com/MRamiBalles/IdleAbsurditree/internal/format"
	"github.com/MRamiBalles/IdleAbsurditree/internal/infra/storage"
)

// OfflineReport describes the catch-up credited by ProcessOfflineGains.
type OfflineReport struct {
	SecondsAway     float64 `json:"seconds_away"`
	SecondsCredited float64 `json:"seconds_credited"`
	Nutrients       float64 `json:"nutrients"`
	Capped          bool    `json:"capped"`
}

// Credited reports whether any nutrients were granted.
func (r OfflineReport) Credited() bool {
	return r.Nutrients > 0
}

// Save stamps LastSaveTime and persists a copy of the record. Saves are written
// in the order they were stamped. After a failed Load it returns ErrSaveBlocked.
func (m *Manager) Save(ctx context.Context) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	if m.loadErr != nil {
		err := m.loadErr
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrSaveBlocked, err)
	}
	m.data.LastSaveTime = gamedata.UnixSeconds(m.clock.Now())
	d := m.data.Clone()
	m.mu.Unlock()

	start := time.Now()
	err := m.store.Save(ctx, d)
	m.metrics.RecordSave(time.Since(start), err)
	if err != nil {
		m.logger.Error("Failed to save game", zap.Error(err))
		return fmt.Errorf("failed to save game: %w", err)
	}
	m.appendEvent(events.EventTypeGameSaved, events.ActorSystem, nil)
	return nil
}

// Load replaces the record with the stored save. A missing or corrupt save starts a
// fresh game; the corrupt data is left in the store until the next save. Any other
// store error keeps the current record and blocks saving until a Load succeeds.
func (m *Manager) Load(ctx context.Context) error {
	d, err := m.store.Load(ctx)
	loaded := false
	switch {
	case err == nil:
		d.NormalizeGeneratorCounts(len(m.catalog))
		loaded = true
	case errors.Is(err, storage.ErrNoSave):
		d = gamedata.New(len(m.catalog))
	case errors.Is(err, storage.ErrCorruptSave):
		m.logger.Error("Save is unreadable, starting a new game", zap.Error(err))
		d = gamedata.New(len(m.catalog))
	default:
		m.logger.Error("Failed to load game", zap.Error(err))
		m.mu.Lock()
		m.loadErr = err
		m.mu.Unlock()
		return fmt.Errorf("failed to load game: %w", err)
	}

	m.mu.Lock()
	m.loadErr = nil
	m.data = d
	m.tracker.Reset()
	m.autosaveTimer = 0
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if loaded {
		m.logger.GameLoad()
		m.appendEvent(events.EventTypeGameLoaded, events.ActorSystem, nil)
	}
	m.notify(snap)
	return nil
}

// ProcessOfflineGains credits passive production for the time since the last save,
// capped at Settings.OfflineCap, then saves. LastSaveTime is always moved to now.
func (m *Manager) ProcessOfflineGains(ctx context.Context) (OfflineReport, error) {
	var report OfflineReport

	m.mu.Lock()
	now := gamedata.UnixSeconds(m.clock.Now())
	last := m.data.LastSaveTime
	auto := m.data.AutoProductionPerSecond
	if last > 0 && now > last && auto > 0 {
		report.SecondsAway = now - last
		report.SecondsCredited = math.Min(report.SecondsAway, m.settings.OfflineCap.Seconds())
		report.Capped = report.SecondsCredited < report.SecondsAway
		report.Nutrients = auto * report.SecondsCredited
		if report.Nutrients > 0 {
			m.addLocked(report.Nutrients, SourceOffline)
		}
	}
	m.data.LastSaveTime = now
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if !report.Credited() {
		return report, nil
	}

	m.logger.OfflineProgress(report.Nutrients, report.SecondsAway)
	m.logger.Info(fmt.Sprintf("Welcome back! You earned %s nutrients while away for %s",
		format.Number(report.Nutrients), format.Duration(report.SecondsCredited)))
	m.metrics.RecordOffline(report.Nutrients)
	m.appendEvent(events.EventTypeOfflineProgress, events.ActorSystem, events.OfflineProgressPayload{
		SecondsAway:     report.SecondsAway,
		SecondsCredited: report.SecondsCredited,
		Nutrients:       report.Nutrients,
	})
	m.notify(snap)

	if err := m.Save(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// Reset wipes all progress, moves the old save to the trash and saves the fresh state.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	m.data = gamedata.New(len(m.catalog))
	m.tracker.Reset()
	m.autosaveTimer = 0
	m.loadErr = nil
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.store.Delete(ctx); err != nil {
		m.logger.Warn("Failed to move save to trash", zap.Error(err))
	}
	m.notify(snap)

	if err := m.Save(ctx); err != nil {
		return err
	}
	m.logger.Info("Game has been reset")
	m.appendEvent(events.EventTypeGameReset, events.ActorPlayer, nil)
	return nil
}

// Close performs the final save on shutdown. It skips the save when the game
// never loaded, leaving the stored save as it was.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	loadErr := m.loadErr
	m.mu.Unlock()
	if loadErr != nil {
		m.logger.Warn("Skipping final save, the game never loaded", zap.Error(loadErr))
		return nil
	}
	if err := m.Save(ctx); err != nil {
		return err
	}
	m.logger.Info("Final save complete")
	return nil
}

// Tick advances the game by delta: passive production, the windowed rate and autosave.
func (m *Manager) Tick(ctx context.Context, delta time.Duration) {
	if delta <= 0 {
		return
	}

	m.mu.Lock()
	var produced float64
	if auto := m.data.AutoProductionPerSecond; auto > 0 {
		produced = auto * delta.Seconds()
		m.addLocked(produced, SourceGenerators)
	}
	rateChanged := m.updateRateLocked()
	m.autosaveTimer += delta
	due := m.autosaveTimer >= m.settings.AutosaveInterval
	if due {
		m.autosaveTimer = 0
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if produced > 0 {
		m.logger.NutrientGain(produced, SourceGenerators)
	}
	if produced > 0 || rateChanged {
		m.notify(snap)
	}
	if due {
		if err := m.Save(ctx); err == nil {
			m.logger.Autosave()
		}
	}
}
