package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MRamiBalles/IdleAbsurditree/internal/domain/gamedata"
)

// DefaultSlot is the save slot used when none is configured.
const DefaultSlot = "default"

// SQLiteStore implements SaveStore on the saves table, one row per slot.
type SQLiteStore struct {
	db   *sql.DB
	slot string
}

func NewSQLiteStore(db *sql.DB, slot string) *SQLiteStore {
	if slot == "" {
		slot = DefaultSlot
	}
	return &SQLiteStore{db: db, slot: slot}
}

func (s *SQLiteStore) Load(ctx context.Context) (*gamedata.GameData, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM saves WHERE slot = ?`, s.slot).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoSave
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", s.slot, err)
	}
	d, err := Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("slot %s: %w", s.slot, err)
	}
	return d, nil
}

func (s *SQLiteStore) Save(ctx context.Context, data *gamedata.GameData) error {
	env, err := newEnvelope(data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal save envelope: %w", err)
	}

	query := `
		INSERT INTO saves (slot, format, checksum, payload, saved_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			format=excluded.format,
			checksum=excluded.checksum,
			payload=excluded.payload,
			saved_at=excluded.saved_at
	`
	_, err = s.db.ExecContext(ctx, query, s.slot, env.Format, env.Checksum, payload, env.SavedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", s.slot, err)
	}
	return nil
}

// Delete moves the slot's row into saves_trash.
func (s *SQLiteStore) Delete(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO saves_trash (slot, format, checksum, payload, saved_at, trashed_at)
		SELECT slot, format, checksum, payload, saved_at, ? FROM saves WHERE slot = ?
	`, time.Now().UnixNano(), s.slot)
	if err != nil {
		return fmt.Errorf("failed to trash slot %s: %w", s.slot, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, s.slot); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", s.slot, err)
	}
	return tx.Commit()
}

// TrashCount returns how many deleted saves are kept for the slot.
func (s *SQLiteStore) TrashCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saves_trash WHERE slot = ?`, s.slot).Scan(&n)
	return n, err
}
