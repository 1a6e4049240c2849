// Package storage provides the persistence layer for player saves and the event ledger.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
)

var (
	// ErrNoSave means the store holds no save yet. Callers start a fresh game.
	ErrNoSave = errors.New("no save found")
	// ErrCorruptSave means a save exists but cannot be decoded or fails its checksum.
	ErrCorruptSave = errors.New("save is corrupt")
)

// SaveStore persists the single player record.
type SaveStore interface {
	// Load returns the stored record, ErrNoSave, or an error wrapping ErrCorruptSave.
	Load(ctx context.Context) (*gamedata.GameData, error)

	// Save replaces the stored record.
	Save(ctx context.Context, data *gamedata.GameData) error

	// Delete moves the current save out of the way. Deleting a missing save is not an error.
	Delete(ctx context.Context) error
}

// StoredEvent mirrors the domain event structure for persistence.
// The events package should NOT import this; the app layer adapts between them.
type StoredEvent struct {
	ID        string          `json:"id" db:"id"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	EventType string          `json:"event_type" db:"event_type"`
	ActorID   string          `json:"actor_id" db:"actor_id"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StoredEvent) error

	// GetByType retrieves all events of a specific type, oldest first.
	GetByType(ctx context.Context, eventType string) ([]StoredEvent, error)

	// Recent retrieves the newest limit events, oldest first.
	Recent(ctx context.Context, limit int) ([]StoredEvent, error)
}
