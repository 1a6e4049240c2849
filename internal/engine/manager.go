package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/generator"
	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
	"github.com/MRamiBalles/IdleAbsurditree/internal/infra/storage"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

// Sources passed to AddNutrients.
const (
	SourceClick      = "click"
	SourceGenerators = "generators"
	SourceOffline    = "offline"
	SourceDev        = "dev"
)

// rateEpsilon is the smallest change of the windowed rate that is published.
const rateEpsilon = 0.01

// Settings tunes the economy and the persistence cadence.
type Settings struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	GainWindow       time.Duration
	OfflineCap       time.Duration
	ClickBaseValue   float64
	ClickMultiplier  float64
}

// DefaultSettings returns the stock tuning.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:     DefaultTickInterval,
		AutosaveInterval: 30 * time.Second,
		GainWindow:       DefaultGainWindow,
		OfflineCap:       24 * time.Hour,
		ClickBaseValue:   1.0,
		ClickMultiplier:  1.0,
	}
}

// Options wires a Manager. Only Catalog is required; nil collaborators get defaults.
type Options struct {
	Settings Settings
	Catalog  generator.Catalog
	Store    storage.SaveStore
	Events   *events.EventLog
	Logger   *logger.Logger
	Metrics  *metrics.Collector
	Clock    Clock
}

// GeneratorView is a read-only quote for one generator.
type GeneratorView struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	Count             int     `json:"count"`
	NextCost          float64 `json:"next_cost"`
	ProductionPerUnit float64 `json:"production_per_unit"`
	Production        float64 `json:"production"`
	Affordable        bool    `json:"affordable"`
	MaxAffordable     int     `json:"max_affordable"`
}

// Snapshot is the state published to listeners and API clients.
type Snapshot struct {
	AvailableNutrients      float64         `json:"available_nutrients"`
	LifetimeNutrients       float64         `json:"lifetime_nutrients"`
	NutrientsPerSecond      float64         `json:"nutrients_per_second"`
	AutoProductionPerSecond float64         `json:"auto_production_per_second"`
	LastSaveTime            float64         `json:"last_save_time"`
	Generators              []GeneratorView `json:"generators"`
}

// Listener is called after every change to the nutrient state.
type Listener func(Snapshot)

// Manager owns the GameData and every rule that changes it.
// All methods are safe for concurrent use. Listeners run outside the lock.
type Manager struct {
	mu            sync.Mutex
	data          *gamedata.GameData
	tracker       *GainTracker
	autosaveTimer time.Duration
	loadErr       error // Set while the last Load failed

	saveMu sync.Mutex // Serializes store writes; taken before mu

	settings Settings
	catalog  generator.Catalog
	store    storage.SaveStore
	eventLog *events.EventLog
	logger   *logger.Logger
	metrics  *metrics.Collector
	clock    Clock

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// NewManager builds a Manager holding a fresh game. Call Load to restore a save.
func NewManager(opts Options) (*Manager, error) {
	if err := opts.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator catalog: %w", err)
	}
	s := opts.Settings
	if s.AutosaveInterval <= 0 {
		return nil, fmt.Errorf("autosave interval must be positive, got %s", s.AutosaveInterval)
	}
	if s.OfflineCap < 0 {
		return nil, fmt.Errorf("offline cap must not be negative, got %s", s.OfflineCap)
	}

	m := &Manager{
		data:      gamedata.New(len(opts.Catalog)),
		tracker:   NewGainTracker(s.GainWindow),
		settings:  s,
		catalog:   append(generator.Catalog(nil), opts.Catalog...),
		store:     opts.Store,
		eventLog:  opts.Events,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		listeners: make(map[int]Listener),
	}
	if m.store == nil {
		m.store = storage.NewMemoryStore()
	}
	if m.eventLog == nil {
		m.eventLog = events.NewEventLog(nil)
	}
	if m.logger == nil {
		m.logger = logger.NewNop()
	}
	if m.metrics == nil {
		m.metrics = metrics.Get()
	}
	if m.clock == nil {
		m.clock = SystemClock()
	}
	m.settings.GainWindow = m.tracker.Window()
	return m, nil
}

// Settings returns the tuning the Manager was built with.
func (m *Manager) Settings() Settings {
	return m.settings
}

// Catalog returns a copy of the generator catalog.
func (m *Manager) Catalog() generator.Catalog {
	return append(generator.Catalog(nil), m.catalog...)
}

// Events returns the event log the Manager appends to.
func (m *Manager) Events() *events.EventLog {
	return m.eventLog
}

// AddNutrients credits amount to both available and lifetime nutrients.
// Non-positive amounts are ignored. Offline credit is kept out of the rate window.
func (m *Manager) AddNutrients(amount float64, source string) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return
	}
	m.mu.Lock()
	m.addLocked(amount, source)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.NutrientGain(amount, source)
	m.notify(snap)
}

func (m *Manager) addLocked(amount float64, source string) {
	m.data.AvailableNutrients += amount
	m.data.LifetimeNutrients += amount
	if source != SourceOffline {
		m.tracker.Record(m.clock.Now(), amount)
	}
}

// SpendNutrients debits amount when enough is available and reports whether it did.
func (m *Manager) SpendNutrients(amount float64, purpose string) bool {
	if amount <= 0 || math.IsNaN(amount) {
		return false
	}
	m.mu.Lock()
	if m.data.AvailableNutrients < amount {
		m.mu.Unlock()
		return false
	}
	m.data.AvailableNutrients -= amount
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.NutrientSpend(amount, purpose)
	m.notify(snap)
	return true
}

// Click credits one click and returns its value.
func (m *Manager) Click() float64 {
	value := m.settings.ClickBaseValue * m.settings.ClickMultiplier
	m.AddNutrients(value, SourceClick)
	m.metrics.RecordClick()
	return value
}

// UpdateNutrientsPerSecond recomputes the windowed rate. Listeners only fire
// when the rate moved by more than 0.01.
func (m *Manager) UpdateNutrientsPerSecond() {
	m.mu.Lock()
	changed := m.updateRateLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if changed {
		m.notify(snap)
	}
}

func (m *Manager) updateRateLocked() bool {
	rate := m.tracker.Rate(m.clock.Now())
	if math.Abs(rate-m.data.NutrientsPerSecond) <= rateEpsilon {
		return false
	}
	m.data.NutrientsPerSecond = rate
	return true
}

// UpdateProductionRate recomputes passive production from the owned generators.
func (m *Manager) UpdateProductionRate() {
	m.mu.Lock()
	m.updateProductionLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}

func (m *Manager) updateProductionLocked() {
	m.data.AutoProductionPerSecond = m.catalog.TotalProduction(m.data.GeneratorCounts)
}

// Snapshot returns the current published state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Data returns a copy of the player record.
func (m *Manager) Data() *gamedata.GameData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Clone()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		AvailableNutrients:      m.data.AvailableNutrients,
		LifetimeNutrients:       m.data.LifetimeNutrients,
		NutrientsPerSecond:      m.data.NutrientsPerSecond,
		AutoProductionPerSecond: m.data.AutoProductionPerSecond,
		LastSaveTime:            m.data.LastSaveTime,
		Generators:              m.viewsLocked(),
	}
}

// Subscribe registers fn for change notifications and returns a func that removes it.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.listenersMu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenersMu.Lock()
			delete(m.listeners, id)
			m.listenersMu.Unlock()
		})
	}
}

func (m *Manager) notify(snap Snapshot) {
	m.listenersMu.RLock()
	fns := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// appendEvent records e in the event log. Persistence failures are logged, never fatal.
func (m *Manager) appendEvent(eventType events.EventType, actor string, payload interface{}) {
	e := events.GameEvent{
		Type:      eventType,
		ActorID:   actor,
		Payload:   payload,
		Timestamp: m.clock.Now(),
	}
	if _, err := m.eventLog.Append(e); err != nil {
		m.logger.Error("Failed to persist event", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
