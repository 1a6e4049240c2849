package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MRamiBalles/IdleAbsurditree/internal/network"
)

func TestGenerateRandomActionMix(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := map[string]int{}
	for i := 0; i < 1000; i++ {
		a := generateRandomAction(rng, 2)
		counts[a.Type]++
		if a.Type == network.ActionBuy {
			assert.GreaterOrEqual(t, a.Generator, 0)
			assert.Less(t, a.Generator, 2)
		}
	}
	assert.Greater(t, counts[network.ActionClick], counts[network.ActionBuy])
	assert.Positive(t, counts[network.ActionBuy])
	assert.Positive(t, counts[network.ActionSave])
}

func TestGenerateRandomActionWithoutGenerators(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		assert.Equal(t, network.ActionClick, generateRandomAction(rng, 0).Type)
	}
}

func TestLatencySummary(t *testing.T) {
	minL, avgL, maxL := latencySummary([]time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond})
	assert.Equal(t, time.Millisecond, minL)
	assert.Equal(t, 2*time.Millisecond, avgL)
	assert.Equal(t, 3*time.Millisecond, maxL)

	minL, avgL, maxL = latencySummary(nil)
	assert.Zero(t, minL+avgL+maxL)
}

func TestStatsRecord(t *testing.T) {
	var s Stats
	s.record(network.ServerMessage{Type: network.MessageState})
	s.record(network.ServerMessage{Type: network.MessageError, Error: "rate limit exceeded"})
	s.record(network.ServerMessage{Type: network.MessagePurchase})
	assert.Equal(t, int64(3), s.MessagesReceived)
	assert.Equal(t, int64(1), s.StateUpdates)
	assert.Equal(t, int64(1), s.ServerErrors)
}
