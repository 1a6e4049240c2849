package storage

import (
	"context"
	"sync"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
)

// MemoryStore keeps the save in process memory. Simulations and tests use it.
type MemoryStore struct {
	mu      sync.Mutex
	data    *gamedata.GameData
	trashed *gamedata.GameData
	saves   int
	failErr error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*gamedata.GameData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrNoSave
	}
	return s.data.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, data *gamedata.GameData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.data = data.Clone()
	s.saves++
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		s.trashed = s.data
		s.data = nil
	}
	return nil
}

// Saves returns how many successful saves the store received.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Trashed returns the last deleted save, if any.
func (s *MemoryStore) Trashed() *gamedata.GameData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trashed == nil {
		return nil
	}
	return s.trashed.Clone()
}

// FailSaves makes every following Save return err. Pass nil to recover.
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// MemoryEventRepository keeps the ledger in process memory.
type MemoryEventRepository struct {
	mu     sync.Mutex
	events []StoredEvent
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) Append(ctx context.Context, event StoredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *MemoryEventRepository) GetByType(ctx context.Context, eventType string) ([]StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StoredEvent
	for _, e := range r.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryEventRepository) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		return nil, nil
	}
	start := len(r.events) - limit
	if start < 0 {
		start = 0
	}
	out := make([]StoredEvent, len(r.events)-start)
	copy(out, r.events[start:])
	return out, nil
}
