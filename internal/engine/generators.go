package engine

import (
	"context"
	"fmt"

	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
)

// Purchase describes a completed generator purchase.
type Purchase struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Units int     `json:"units"`
	Count int     `json:"count"` // Owned after the purchase
	Cost  float64 `json:"cost"`
}

// GeneratorCount returns how many units of generator i are owned. Out of range is 0.
func (m *Manager) GeneratorCount(i int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.data.GeneratorCounts) {
		return 0
	}
	return m.data.GeneratorCounts[i]
}

// SetGeneratorCount overwrites the owned count of generator i and recomputes production.
func (m *Manager) SetGeneratorCount(i, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: count %d", ErrInvalidAmount, n)
	}
	return m.mutateCount(i, func(int) int { return n })
}

// IncrementGeneratorCount adds one owned unit of generator i without charging for it.
func (m *Manager) IncrementGeneratorCount(i int) error {
	return m.mutateCount(i, func(c int) int { return c + 1 })
}

func (m *Manager) mutateCount(i int, fn func(int) int) error {
	m.mu.Lock()
	if i < 0 || i >= len(m.data.GeneratorCounts) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrGeneratorIndex, i)
	}
	m.data.GeneratorCounts[i] = fn(m.data.GeneratorCounts[i])
	m.updateProductionLocked()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
	return nil
}

// GeneratorCost returns the price of the next unit of generator i.
func (m *Manager) GeneratorCost(i int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	def, ok := m.catalog.Get(i)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrGeneratorIndex, i)
	}
	return def.CostAt(m.data.GeneratorCounts[i]), nil
}

// Generators lists every generator with its current quote.
func (m *Manager) Generators() []GeneratorView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewsLocked()
}

func (m *Manager) viewsLocked() []GeneratorView {
	views := make([]GeneratorView, len(m.catalog))
	avail := m.data.AvailableNutrients
	for i, def := range m.catalog {
		count := m.data.GeneratorCounts[i]
		next := def.CostAt(count)
		views[i] = GeneratorView{
			Index:             i,
			Name:              def.Name,
			Count:             count,
			NextCost:          next,
			ProductionPerUnit: def.BaseProduction,
			Production:        def.ProductionAt(count),
			Affordable:        avail >= next,
			MaxAffordable:     def.MaxAffordable(count, avail),
		}
	}
	return views
}

// BuyGenerator buys one unit of generator i.
func (m *Manager) BuyGenerator(ctx context.Context, i int) (Purchase, error) {
	return m.BuyGenerators(ctx, i, 1)
}

// BuyGenerators buys n units of generator i at the geometric series price, or nothing.
func (m *Manager) BuyGenerators(ctx context.Context, i, n int) (Purchase, error) {
	if n <= 0 {
		return Purchase{}, fmt.Errorf("%w: quantity %d", ErrInvalidAmount, n)
	}
	return m.buy(ctx, i, func(int, float64) int { return n })
}

// BuyMaxGenerators buys as many units of generator i as the available nutrients allow.
func (m *Manager) BuyMaxGenerators(ctx context.Context, i int) (Purchase, error) {
	return m.buy(ctx, i, func(count int, avail float64) int {
		def := m.catalog[i]
		return def.MaxAffordable(count, avail)
	})
}

func (m *Manager) buy(ctx context.Context, i int, units func(count int, avail float64) int) (Purchase, error) {
	if err := ctx.Err(); err != nil {
		return Purchase{}, err
	}

	m.mu.Lock()
	def, ok := m.catalog.Get(i)
	if !ok {
		m.mu.Unlock()
		return Purchase{}, fmt.Errorf("%w: %d", ErrGeneratorIndex, i)
	}
	count := m.data.GeneratorCounts[i]
	n := units(count, m.data.AvailableNutrients)
	if n <= 0 {
		next := def.CostAt(count)
		avail := m.data.AvailableNutrients
		m.mu.Unlock()
		return Purchase{}, fmt.Errorf("%w: %s costs %.2f, have %.2f", ErrInsufficientNutrients, def.Name, next, avail)
	}
	cost := def.CostForN(count, n)
	if m.data.AvailableNutrients < cost {
		avail := m.data.AvailableNutrients
		m.mu.Unlock()
		return Purchase{}, fmt.Errorf("%w: %d x %s costs %.2f, have %.2f", ErrInsufficientNutrients, n, def.Name, cost, avail)
	}
	m.data.AvailableNutrients -= cost
	m.data.GeneratorCounts[i] += n
	m.updateProductionLocked()
	p := Purchase{Index: i, Name: def.Name, Units: n, Count: m.data.GeneratorCounts[i], Cost: cost}
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.NutrientSpend(cost, "generator_"+def.Name)
	m.logger.GeneratorPurchase(def.Name, p.Count, cost)
	m.metrics.RecordPurchase(n, cost)
	m.appendEvent(events.EventTypeGeneratorPurchased, events.ActorPlayer, events.GeneratorPurchasedPayload{
		Index: p.Index,
		Name:  p.Name,
		Units: p.Units,
		Count: p.Count,
		Cost:  p.Cost,
	})
	m.notify(snap)
	return p, nil
}
