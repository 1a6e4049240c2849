package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StoredEvent) error {
	payload := string(event.Payload)
	if payload == "" {
		payload = "null"
	}

	query := `
		INSERT INTO events (id, timestamp, event_type, actor_id, payload)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Timestamp.UnixNano(), event.EventType, event.ActorID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var e StoredEvent
		var ts int64
		var payloadStr string
		if err := rows.Scan(&e.ID, &ts, &e.EventType, &e.ActorID, &payloadStr); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.Payload = []byte(payloadStr)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByType(ctx context.Context, eventType string) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, actor_id, payload FROM events WHERE event_type = ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, eventType)
}

func (r *SQLiteEventRepository) Recent(ctx context.Context, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := `SELECT id, timestamp, event_type, actor_id, payload FROM events ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	events, err := r.getMany(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// All returns the whole ledger, oldest first.
func (r *SQLiteEventRepository) All(ctx context.Context) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, actor_id, payload FROM events ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query)
}
