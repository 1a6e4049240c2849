// Package app wires configuration, storage, logging and the engine into one unit
// shared by the CLI, the server and the balance report.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/config"
	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
	"github.com/MRamiBalles/IdleAbsurditree/internal/infra/storage"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

// ledgerTimeout bounds a single event write.
const ledgerTimeout = 5 * time.Second

// App holds the wired collaborators.
type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.Collector
	Store   storage.SaveStore
	Ledger  storage.EventRepository
	Events  *events.EventLog
	Manager *engine.Manager

	db *sql.DB // Shared by the sqlite store and ledger, nil otherwise
}

// Options overrides pieces of the wiring. Zero values use the config.
type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.Collector
	Clock   engine.Clock
}

// New builds an App from cfg. Nothing is loaded yet; call Boot.
func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: opts.Logger, Metrics: opts.Metrics}
	if a.Logger == nil {
		l, err := logger.New(cfg.LoggerOptions())
		if err != nil {
			return nil, err
		}
		a.Logger = l
	}
	if a.Metrics == nil {
		a.Metrics = metrics.Get()
	}

	if err := a.openStorage(); err != nil {
		return nil, err
	}

	a.Events = events.NewEventLog(&ledgerPersister{repo: a.Ledger})

	settings, err := cfg.EngineSettings()
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.Manager, err = engine.NewManager(engine.Options{
		Settings: settings,
		Catalog:  cfg.Catalog(),
		Store:    a.Store,
		Events:   a.Events,
		Logger:   a.Logger,
		Metrics:  a.Metrics,
		Clock:    opts.Clock,
	})
	if err != nil {
		a.closeDB()
		return nil, err
	}
	return a, nil
}

func (a *App) openStorage() error {
	sc := a.Config.Storage
	switch sc.Driver {
	case config.DriverFile:
		a.Store = storage.NewFileStore(sc.Path, sc.Compress)
		if sc.LedgerPath == "" {
			a.Ledger = storage.NewMemoryEventRepository()
			return nil
		}
		db, err := storage.InitSQLite(sc.LedgerPath)
		if err != nil {
			return fmt.Errorf("failed to open event ledger: %w", err)
		}
		a.db = db
		a.Ledger = storage.NewSQLiteEventRepository(db)
	case config.DriverSQLite:
		db, err := storage.InitSQLite(sc.Path)
		if err != nil {
			return err
		}
		a.db = db
		a.Store = storage.NewSQLiteStore(db, sc.Slot)
		a.Ledger = storage.NewSQLiteEventRepository(db)
	case config.DriverMemory:
		a.Store = storage.NewMemoryStore()
		a.Ledger = storage.NewMemoryEventRepository()
	default:
		return fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
	return nil
}

// Boot loads the save and credits offline progress.
func (a *App) Boot(ctx context.Context) (engine.OfflineReport, error) {
	if err := a.Manager.Load(ctx); err != nil {
		return engine.OfflineReport{}, err
	}
	return a.Manager.ProcessOfflineGains(ctx)
}

// History returns a reconstructor over the event ledger.
func (a *App) History() *storage.Reconstructor {
	return storage.NewReconstructor(a.Ledger)
}

// Close performs the final save and releases storage.
func (a *App) Close(ctx context.Context) error {
	err := a.Manager.Close(ctx)
	if cerr := a.closeDB(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	_ = a.Logger.Sync() // stdout cannot be synced on some platforms
	return err
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// ledgerPersister adapts an EventRepository to events.EventPersister.
type ledgerPersister struct {
	repo storage.EventRepository
}

func (p *ledgerPersister) Append(e events.GameEvent) error {
	var payload json.RawMessage
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = raw
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	return p.repo.Append(ctx, storage.StoredEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		Payload:   payload,
	})
}

// LogBoot reports the boot outcome the way both binaries print it.
func (a *App) LogBoot(report engine.OfflineReport) {
	s := a.Manager.Snapshot()
	a.Logger.Info("Game ready",
		zap.String("storage", a.Config.Storage.Driver),
		zap.Float64("available_nutrients", s.AvailableNutrients),
		zap.Float64("auto_production_per_second", s.AutoProductionPerSecond),
		zap.Bool("offline_credited", report.Credited()))
}
