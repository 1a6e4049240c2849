package simulation

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
)

func shortScenario() Scenario {
	sc := DefaultScenario()
	sc.Name = "short"
	sc.Duration = 5 * time.Minute
	sc.Absence = time.Hour
	return sc
}

func TestRunBuysGenerators(t *testing.T) {
	report, err := Run(context.Background(), shortScenario(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3000, report.Frames)
	assert.Equal(t, 5*time.Minute, report.Played)
	assert.Equal(t, 1500, report.Clicks)
	assert.Positive(t, report.Purchases)
	require.NotEmpty(t, report.Milestones)

	first := report.Milestones[0]
	assert.Equal(t, "Root Sprout", first.Generator)
	assert.Equal(t, 1, first.Count)
	assert.Equal(t, 10.0, first.Cost)
	assert.LessOrEqual(t, first.At, 3*time.Second)

	assert.GreaterOrEqual(t, report.BeforeAbsence.LifetimeNutrients, float64(report.Clicks))
	assert.Positive(t, report.BeforeAbsence.AutoProductionPerSecond)
	assert.Positive(t, report.PeakRate)
}

func TestRunCreditsOfflineTime(t *testing.T) {
	report, err := Run(context.Background(), shortScenario(), nil)
	require.NoError(t, err)

	auto := report.BeforeAbsence.AutoProductionPerSecond
	require.True(t, report.Offline.Credited())
	assert.Equal(t, 3600.0, report.Offline.SecondsAway)
	assert.False(t, report.Offline.Capped)
	assert.InDelta(t, auto*3600, report.Offline.Nutrients, 1e-6)
	assert.InDelta(t, report.BeforeAbsence.AvailableNutrients+report.Offline.Nutrients,
		report.Final.AvailableNutrients, 1e-6)
}

func TestRunCapsLongAbsence(t *testing.T) {
	sc := shortScenario()
	sc.Absence = 72 * time.Hour
	report, err := Run(context.Background(), sc, nil)
	require.NoError(t, err)

	assert.True(t, report.Offline.Capped)
	assert.Equal(t, (24 * time.Hour).Seconds(), report.Offline.SecondsCredited)
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := Run(context.Background(), shortScenario(), nil)
	require.NoError(t, err)
	b, err := Run(context.Background(), shortScenario(), nil)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestRunWithoutClicksDoesNothing(t *testing.T) {
	sc := shortScenario()
	sc.ClicksPerSecond = 0
	report, err := Run(context.Background(), sc, nil)
	require.NoError(t, err)

	assert.Zero(t, report.Clicks)
	assert.Zero(t, report.Purchases)
	assert.Empty(t, report.Milestones)
	assert.False(t, report.Offline.Credited())
	assert.Zero(t, report.Final.LifetimeNutrients)
}

func TestRunRejectsInvalidScenario(t *testing.T) {
	for name, mutate := range map[string]func(*Scenario){
		"zero duration":   func(s *Scenario) { s.Duration = 0 },
		"zero frame":      func(s *Scenario) { s.FrameDelta = 0 },
		"negative clicks": func(s *Scenario) { s.ClicksPerSecond = -1 },
		"negative away":   func(s *Scenario) { s.Absence = -time.Second },
		"empty catalog":   func(s *Scenario) { s.Catalog = nil },
	} {
		t.Run(name, func(t *testing.T) {
			sc := shortScenario()
			mutate(&sc)
			_, err := Run(context.Background(), sc, nil)
			assert.Error(t, err)
		})
	}
}

func TestRunHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, shortScenario(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBestPayback(t *testing.T) {
	views := []engine.GeneratorView{
		{Index: 0, NextCost: 20.11, ProductionPerUnit: 1},
		{Index: 1, NextCost: 100, ProductionPerUnit: 5},
		{Index: 2, NextCost: 1, ProductionPerUnit: 0},
	}
	best, ok := bestPayback(views)
	require.True(t, ok)
	assert.Equal(t, 1, best.Index)

	_, ok = bestPayback(views[2:])
	assert.False(t, ok)
}

func TestWriteText(t *testing.T) {
	report, err := Run(context.Background(), shortScenario(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteText(&buf))
	out := buf.String()
	assert.Contains(t, out, "Scenario:")
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "5m")
	assert.Contains(t, out, "Root Sprout")
	assert.Contains(t, out, "over 1h 0m")
}
