// Package events provides the append-only log of notable game actions:
// purchases, saves, resets, offline credits and dev commands.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeGeneratorPurchased EventType = "GENERATOR_PURCHASED"
	EventTypeGameSaved          EventType = "GAME_SAVED"
	EventTypeGameLoaded         EventType = "GAME_LOADED"
	EventTypeGameReset          EventType = "GAME_RESET"
	EventTypeOfflineProgress    EventType = "OFFLINE_PROGRESS"
	EventTypeDevCommand         EventType = "DEV_COMMAND"
)

// Actor IDs recorded on events.
const (
	ActorPlayer = "player"
	ActorSystem = "system"
	ActorDev    = "dev"
)

// GeneratorPurchasedPayload is attached to GENERATOR_PURCHASED.
type GeneratorPurchasedPayload struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Units int     `json:"units"`
	Count int     `json:"count"` // Owned after the purchase
	Cost  float64 `json:"cost"`
}

// OfflineProgressPayload is attached to OFFLINE_PROGRESS.
type OfflineProgressPayload struct {
	SecondsAway     float64 `json:"seconds_away"`
	SecondsCredited float64 `json:"seconds_credited"`
	Nutrients       float64 `json:"nutrients"`
}

// DevCommandPayload is attached to DEV_COMMAND.
type DevCommandPayload struct {
	Command string `json:"command"`
	Details string `json:"details,omitempty"`
}

// GameEvent represents an immutable record of an action in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	Payload   interface{} `json:"payload,omitempty"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
}

// NewEventLog creates a new event log. persister may be nil.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log, filling in ID and Timestamp when unset.
// The event is kept in memory even when the write-through fails.
func (el *EventLog) Append(event GameEvent) (GameEvent, error) {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		if err := el.persister.Append(event); err != nil {
			return event, fmt.Errorf("failed to persist event %s: %w", event.Type, err)
		}
	}
	return event, nil
}

// GetByType returns all events of a type in append order.
func (el *EventLog) GetByType(eventType EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

// Since returns a copy of the events appended at or after index.
func (el *EventLog) Since(index int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	if index < 0 {
		index = 0
	}
	if index >= len(el.events) {
		return nil
	}
	out := make([]GameEvent, len(el.events)-index)
	copy(out, el.events[index:])
	return out
}

// Replay returns the full history of events.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// Len returns the number of events in the log.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
