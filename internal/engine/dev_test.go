package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
)

func TestParseTarget(t *testing.T) {
	for _, s := range []string{"available", "lifetime", "both"} {
		got, err := ParseTarget(s)
		require.NoError(t, err)
		assert.Equal(t, Target(s), got)
	}
	_, err := ParseTarget("everything")
	assert.Error(t, err)
}

func TestDevAdd(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.m.DevAdd(TargetAvailable, 10))
	s := f.m.Snapshot()
	assert.Equal(t, 10.0, s.AvailableNutrients)
	assert.Zero(t, s.LifetimeNutrients)

	require.NoError(t, f.m.DevAdd(TargetBoth, 5))
	s = f.m.Snapshot()
	assert.Equal(t, 15.0, s.AvailableNutrients)
	assert.Equal(t, 5.0, s.LifetimeNutrients)
	assert.Zero(t, f.m.tracker.Len(), "dev credit stays out of the rate window")

	assert.ErrorIs(t, f.m.DevAdd(TargetLifetime, 0), ErrInvalidAmount)
	assert.Error(t, f.m.DevAdd("nowhere", 1))
}

func TestDevSetClampsAtZero(t *testing.T) {
	f := newFixture(t)

	f.m.SetNutrients(50)
	s := f.m.Snapshot()
	assert.Equal(t, 50.0, s.AvailableNutrients)
	assert.Equal(t, 50.0, s.LifetimeNutrients)

	f.m.SetAvailableNutrients(-3)
	assert.Zero(t, f.m.Snapshot().AvailableNutrients)

	f.m.SetLifetimeNutrients(7)
	assert.Equal(t, 7.0, f.m.Snapshot().LifetimeNutrients)
}

func TestDevClear(t *testing.T) {
	f := newFixture(t)
	f.m.SetNutrients(50)

	f.m.ClearAvailableNutrients()
	s := f.m.Snapshot()
	assert.Zero(t, s.AvailableNutrients)
	assert.Equal(t, 50.0, s.LifetimeNutrients)

	f.m.ClearLifetimeNutrients()
	assert.Zero(t, f.m.Snapshot().LifetimeNutrients)

	f.m.SetNutrients(50)
	f.m.ClearAllNutrients()
	s = f.m.Snapshot()
	assert.Zero(t, s.AvailableNutrients)
	assert.Zero(t, s.LifetimeNutrients)
}

func TestSetAutoProduction(t *testing.T) {
	f := newFixture(t)

	f.m.SetAutoProduction(12)
	assert.Equal(t, 12.0, f.m.Snapshot().AutoProductionPerSecond)

	f.m.SetAutoProduction(-1)
	assert.Zero(t, f.m.Snapshot().AutoProductionPerSecond)
}

func TestDevCommandsAreRecorded(t *testing.T) {
	f := newFixture(t)
	f.m.SetNutrients(1)
	f.m.ClearAllNutrients()
	f.m.SetAutoProduction(2)

	recorded := f.log.GetByType(events.EventTypeDevCommand)
	require.Len(t, recorded, 3)
	p, ok := recorded[2].Payload.(events.DevCommandPayload)
	require.True(t, ok)
	assert.Equal(t, "set_auto_production", p.Command)
	assert.Equal(t, events.ActorDev, recorded[2].ActorID)
}
