// Package gamedata defines the single mutable record that a player's progress lives in.
// This package is PURE and must NOT import any infrastructure packages.
package gamedata

import (
	"math"
	"time"
)

// GameData is the persisted player state.
type GameData struct {
	AvailableNutrients      float64 `json:"available_nutrients"`
	LifetimeNutrients       float64 `json:"lifetime_nutrients"`
	NutrientsPerSecond      float64 `json:"nutrients_per_second"`       // Windowed rate, derived
	AutoProductionPerSecond float64 `json:"auto_production_per_second"` // Passive production
	LastSaveTime            float64 `json:"last_save_time"`             // Unix seconds
	GeneratorCounts         []int   `json:"generator_counts"`           // Indexed like the generator catalog
}

// New returns a fresh record with generatorTypes zeroed purchase counts.
func New(generatorTypes int) *GameData {
	d := &GameData{}
	d.InitializeGeneratorCounts(generatorTypes)
	return d
}

// InitializeGeneratorCounts discards all counts and creates count zeroed entries.
func (d *GameData) InitializeGeneratorCounts(count int) {
	if count < 0 {
		count = 0
	}
	d.GeneratorCounts = make([]int, count)
}

// NormalizeGeneratorCounts pads or truncates the counts to exactly count entries,
// keeping the existing values. Saves written by a build with a different catalog still load.
func (d *GameData) NormalizeGeneratorCounts(count int) {
	if count < 0 {
		count = 0
	}
	switch {
	case len(d.GeneratorCounts) > count:
		d.GeneratorCounts = d.GeneratorCounts[:count]
	case len(d.GeneratorCounts) < count:
		d.GeneratorCounts = append(d.GeneratorCounts, make([]int, count-len(d.GeneratorCounts))...)
	}
	for i, c := range d.GeneratorCounts {
		if c < 0 {
			d.GeneratorCounts[i] = 0
		}
	}
}

// Clone returns a deep copy.
func (d *GameData) Clone() *GameData {
	c := *d
	c.GeneratorCounts = append([]int(nil), d.GeneratorCounts...)
	if c.GeneratorCounts == nil {
		c.GeneratorCounts = []int{}
	}
	return &c
}

// LastSave returns LastSaveTime as a time. The zero time means the game was never saved.
func (d *GameData) LastSave() time.Time {
	if d.LastSaveTime <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(d.LastSaveTime)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// UnixSeconds converts t to the fractional unix seconds LastSaveTime is stored in.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
