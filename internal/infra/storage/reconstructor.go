// Package storage - reconstructor.go
// Rebuilds purchase history and a "while you were away" recap from the event ledger.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/MRamiBalles/IdleAbsurditree/internal/events"
)

// Reconstructor rebuilds derived views from the event log.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new history reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// GeneratorHistory totals the purchases of one generator.
type GeneratorHistory struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	Units      int       `json:"units"`
	Spent      float64   `json:"spent"`
	LastBought time.Time `json:"last_bought"`
}

// PurchaseHistory is the fold of every GENERATOR_PURCHASED event.
type PurchaseHistory struct {
	Generators []GeneratorHistory `json:"generators"` // Sorted by index
	TotalUnits int                `json:"total_units"`
	TotalSpent float64            `json:"total_spent"`
}

// RecapEvent is a simplified event for the history screen.
type RecapEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Summary   string    `json:"summary"` // Human-readable description
	Impact    string    `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// BuildPurchaseHistory folds purchase events into per-generator totals.
// Events of other types and undecodable payloads are skipped.
func BuildPurchaseHistory(evts []StoredEvent) PurchaseHistory {
	byIndex := make(map[int]*GeneratorHistory)
	var h PurchaseHistory

	for _, e := range evts {
		if e.EventType != string(events.EventTypeGeneratorPurchased) {
			continue
		}
		var p events.GeneratorPurchasedPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil || p.Units <= 0 {
			continue
		}
		g, ok := byIndex[p.Index]
		if !ok {
			g = &GeneratorHistory{Index: p.Index}
			byIndex[p.Index] = g
		}
		g.Name = p.Name
		g.Units += p.Units
		g.Spent += p.Cost
		if e.Timestamp.After(g.LastBought) {
			g.LastBought = e.Timestamp
		}
		h.TotalUnits += p.Units
		h.TotalSpent += p.Cost
	}

	h.Generators = make([]GeneratorHistory, 0, len(byIndex))
	for _, g := range byIndex {
		h.Generators = append(h.Generators, *g)
	}
	sort.Slice(h.Generators, func(i, j int) bool {
		return h.Generators[i].Index < h.Generators[j].Index
	})
	return h
}

// PurchaseHistory loads purchase events from the repository and folds them.
func (r *Reconstructor) PurchaseHistory(ctx context.Context) (PurchaseHistory, error) {
	evts, err := r.eventRepo.GetByType(ctx, string(events.EventTypeGeneratorPurchased))
	if err != nil {
		return PurchaseHistory{}, fmt.Errorf("failed to get purchase events: %w", err)
	}
	return BuildPurchaseHistory(evts), nil
}

// GenerateRecap summarizes the newest limit events.
func (r *Reconstructor) GenerateRecap(ctx context.Context, limit int) ([]RecapEvent, error) {
	evts, err := r.eventRepo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	recap := make([]RecapEvent, 0, len(evts))
	for _, e := range evts {
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp,
			EventType: e.EventType,
			Summary:   summarizeEvent(e),
			Impact:    determineImpact(e),
		})
	}
	return recap, nil
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e StoredEvent) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeGeneratorPurchased:
		var p events.GeneratorPurchasedPayload
		if json.Unmarshal(e.Payload, &p) == nil {
			return fmt.Sprintf("Bought %d x %s for %.2f nutrients (now %d).", p.Units, p.Name, p.Cost, p.Count)
		}
		return "Bought a generator."
	case events.EventTypeOfflineProgress:
		var p events.OfflineProgressPayload
		if json.Unmarshal(e.Payload, &p) == nil {
			return fmt.Sprintf("Earned %.2f nutrients over %.0fs away.", p.Nutrients, p.SecondsCredited)
		}
		return "Earned nutrients while away."
	case events.EventTypeDevCommand:
		var p events.DevCommandPayload
		if json.Unmarshal(e.Payload, &p) == nil && p.Command != "" {
			return "Dev command: " + p.Command
		}
		return "Dev command executed."
	case events.EventTypeGameSaved:
		return "Game saved."
	case events.EventTypeGameLoaded:
		return "Game loaded."
	case events.EventTypeGameReset:
		return "Game reset."
	default:
		return "Something happened to the tree."
	}
}

// determineImpact classifies the event impact.
func determineImpact(e StoredEvent) string {
	switch events.EventType(e.EventType) {
	case events.EventTypeGeneratorPurchased, events.EventTypeOfflineProgress:
		return "POSITIVE"
	case events.EventTypeGameReset:
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}
