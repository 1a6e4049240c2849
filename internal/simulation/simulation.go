// Package simulation plays the economy headlessly: a scripted player clicks at a
// fixed rate, greedily buys the generator with the best payback and then leaves
// for a while. Everything runs against a manual clock, so runs are deterministic.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/generator"
	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/infra/storage"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
)

// Epoch is the simulated wall clock at the start of every run.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// milestoneCounts are the owned counts reported as milestones.
var milestoneCounts = map[int]bool{1: true, 5: true, 10: true, 25: true, 50: true, 100: true, 250: true, 500: true, 1000: true}

// Scenario describes one scripted session.
type Scenario struct {
	Name            string
	Duration        time.Duration // Active play time
	FrameDelta      time.Duration // Simulated time per frame
	ClicksPerSecond float64
	Absence         time.Duration // Time away after playing
	Settings        engine.Settings
	Catalog         generator.Catalog
}

// DefaultScenario is half an hour of play at five clicks per second followed by a night away.
func DefaultScenario() Scenario {
	return Scenario{
		Name:            "default",
		Duration:        30 * time.Minute,
		FrameDelta:      engine.DefaultTickInterval,
		ClicksPerSecond: 5,
		Absence:         8 * time.Hour,
		Settings:        engine.DefaultSettings(),
		Catalog:         generator.DefaultCatalog(),
	}
}

// Validate checks the scenario for errors.
func (s Scenario) Validate() error {
	if s.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if s.FrameDelta <= 0 {
		return errors.New("frame delta must be positive")
	}
	if s.ClicksPerSecond < 0 || math.IsNaN(s.ClicksPerSecond) {
		return errors.New("clicks per second must not be negative")
	}
	if s.Absence < 0 {
		return errors.New("absence must not be negative")
	}
	return s.Catalog.Validate()
}

// Milestone records the purchase that brought a generator to a round count.
type Milestone struct {
	At        time.Duration `json:"at"`
	Generator string        `json:"generator"`
	Count     int           `json:"count"`
	Cost      float64       `json:"cost"`
}

// Report is the outcome of a run.
type Report struct {
	Scenario      string               `json:"scenario"`
	Played        time.Duration        `json:"played"`
	Frames        int                  `json:"frames"`
	Clicks        int                  `json:"clicks"`
	Purchases     int                  `json:"purchases"`
	PeakRate      float64              `json:"peak_rate"` // Highest windowed nutrients/second
	Milestones    []Milestone          `json:"milestones"`
	BeforeAbsence engine.Snapshot      `json:"before_absence"`
	Offline       engine.OfflineReport `json:"offline"`
	Final         engine.Snapshot      `json:"final"`
}

// Run plays sc to completion. log may be nil.
func Run(ctx context.Context, sc Scenario, log *logger.Logger) (Report, error) {
	if err := sc.Validate(); err != nil {
		return Report{}, fmt.Errorf("invalid scenario %q: %w", sc.Name, err)
	}
	if log == nil {
		log = logger.NewNop()
	}

	clock := engine.NewManualClock(Epoch)
	store := storage.NewMemoryStore()
	newManager := func() (*engine.Manager, error) {
		return engine.NewManager(engine.Options{
			Settings: sc.Settings,
			Catalog:  sc.Catalog,
			Store:    store,
			Logger:   log,
			Metrics:  metrics.New(),
			Clock:    clock,
		})
	}

	m, err := newManager()
	if err != nil {
		return Report{}, err
	}
	report := Report{Scenario: sc.Name, Milestones: []Milestone{}}
	p := &player{manager: m, catalog: sc.Catalog, report: &report}

	frames := int(sc.Duration / sc.FrameDelta)
	var clickDebt float64
	for f := 1; f <= frames; f++ {
		if f%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return report, err
			}
		}
		clock.Advance(sc.FrameDelta)
		elapsed := time.Duration(f) * sc.FrameDelta

		clickDebt += sc.ClicksPerSecond * sc.FrameDelta.Seconds()
		for clickDebt >= 1 {
			m.Click()
			report.Clicks++
			clickDebt--
		}
		m.Tick(ctx, sc.FrameDelta)
		if err := p.buyGreedy(ctx, elapsed); err != nil {
			return report, err
		}
		if r := m.Snapshot().NutrientsPerSecond; r > report.PeakRate {
			report.PeakRate = r
		}
	}
	report.Frames = frames
	report.Played = time.Duration(frames) * sc.FrameDelta

	if err := m.Save(ctx); err != nil {
		return report, err
	}
	report.BeforeAbsence = m.Snapshot()
	log.Info(fmt.Sprintf("Simulated %s of play: %d clicks, %d purchases", report.Played, report.Clicks, report.Purchases))

	// Come back later with a fresh process.
	clock.Advance(sc.Absence)
	m, err = newManager()
	if err != nil {
		return report, err
	}
	if err := m.Load(ctx); err != nil {
		return report, err
	}
	if report.Offline, err = m.ProcessOfflineGains(ctx); err != nil {
		return report, err
	}
	report.Final = m.Snapshot()
	return report, nil
}

type player struct {
	manager *engine.Manager
	catalog generator.Catalog
	report  *Report
}

// buyGreedy buys the generator with the lowest cost per unit of production for as
// long as it is affordable. It never buys a worse generator while saving up.
func (p *player) buyGreedy(ctx context.Context, elapsed time.Duration) error {
	for {
		best, ok := bestPayback(p.manager.Generators())
		if !ok || !best.Affordable {
			return nil
		}
		purchase, err := p.manager.BuyGenerator(ctx, best.Index)
		if errors.Is(err, engine.ErrInsufficientNutrients) {
			return nil
		}
		if err != nil {
			return err
		}
		p.report.Purchases++
		if milestoneCounts[purchase.Count] {
			p.report.Milestones = append(p.report.Milestones, Milestone{
				At:        elapsed,
				Generator: purchase.Name,
				Count:     purchase.Count,
				Cost:      purchase.Cost,
			})
		}
	}
}

// bestPayback picks the view with the lowest NextCost/ProductionPerUnit. Ties go
// to the lower index; generators that produce nothing are ignored.
func bestPayback(views []engine.GeneratorView) (engine.GeneratorView, bool) {
	var best engine.GeneratorView
	bestRatio := math.Inf(1)
	found := false
	for _, v := range views {
		if v.ProductionPerUnit <= 0 {
			continue
		}
		if ratio := v.NextCost / v.ProductionPerUnit; ratio < bestRatio {
			best, bestRatio, found = v, ratio, true
		}
	}
	return best, found
}
