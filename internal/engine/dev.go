package engine

import (
	"fmt"
	"math"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
)

// Target selects which nutrient balance a dev command touches.
type Target string

const (
	TargetAvailable Target = "available"
	TargetLifetime  Target = "lifetime"
	TargetBoth      Target = "both"
)

// ParseTarget validates a target name.
func ParseTarget(s string) (Target, error) {
	switch t := Target(s); t {
	case TargetAvailable, TargetLifetime, TargetBoth:
		return t, nil
	}
	return "", fmt.Errorf("unknown target %q (want available, lifetime or both)", s)
}

func (t Target) apply(d *gamedata.GameData, fn func(float64) float64) {
	if t == TargetAvailable || t == TargetBoth {
		d.AvailableNutrients = fn(d.AvailableNutrients)
	}
	if t == TargetLifetime || t == TargetBoth {
		d.LifetimeNutrients = fn(d.LifetimeNutrients)
	}
}

func (m *Manager) devMutate(command, details string, fn func(d *gamedata.GameData)) {
	m.mu.Lock()
	fn(m.data)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.DevCommand(command, details)
	m.appendEvent(events.EventTypeDevCommand, events.ActorDev, events.DevCommandPayload{
		Command: command,
		Details: details,
	})
	m.notify(snap)
}

func clampZero(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	return x
}

// DevAdd adds amount to the target balances without touching the rate window.
func (m *Manager) DevAdd(target Target, amount float64) error {
	if _, err := ParseTarget(string(target)); err != nil {
		return err
	}
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	m.devMutate("add_nutrients", fmt.Sprintf("target=%s amount=%g", target, amount), func(d *gamedata.GameData) {
		target.apply(d, func(v float64) float64 { return v + amount })
	})
	return nil
}

// DevSet overwrites the target balances. Negative values clamp to zero.
func (m *Manager) DevSet(target Target, amount float64) error {
	if _, err := ParseTarget(string(target)); err != nil {
		return err
	}
	if math.IsInf(amount, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	v := clampZero(amount)
	m.devMutate("set_nutrients", fmt.Sprintf("target=%s amount=%g", target, v), func(d *gamedata.GameData) {
		target.apply(d, func(float64) float64 { return v })
	})
	return nil
}

// DevClear zeroes the target balances.
func (m *Manager) DevClear(target Target) error {
	if _, err := ParseTarget(string(target)); err != nil {
		return err
	}
	m.devMutate("clear_nutrients", "target="+string(target), func(d *gamedata.GameData) {
		target.apply(d, func(float64) float64 { return 0 })
	})
	return nil
}

func (m *Manager) ClearLifetimeNutrients() { _ = m.DevClear(TargetLifetime) }

func (m *Manager) ClearAvailableNutrients() { _ = m.DevClear(TargetAvailable) }

func (m *Manager) ClearAllNutrients() { _ = m.DevClear(TargetBoth) }

func (m *Manager) SetLifetimeNutrients(x float64) { _ = m.DevSet(TargetLifetime, x) }

func (m *Manager) SetAvailableNutrients(x float64) { _ = m.DevSet(TargetAvailable, x) }

// SetNutrients sets both balances to x.
func (m *Manager) SetNutrients(x float64) { _ = m.DevSet(TargetBoth, x) }

// SetAutoProduction overrides passive production until the next purchase recomputes it.
func (m *Manager) SetAutoProduction(rate float64) {
	if math.IsInf(rate, 0) {
		rate = 0
	}
	v := clampZero(rate)
	m.devMutate("set_auto_production", fmt.Sprintf("rate=%g", v), func(d *gamedata.GameData) {
		d.AutoProductionPerSecond = v
	})
}
