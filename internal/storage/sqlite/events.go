package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kmoroz/splithaus/internal/eventlog"
)

// SaveEvent persists an activity-log event. Event data is stored as a
// JSON blob since it is free-form per event type.
func (s *SQLiteStore) SaveEvent(ctx context.Context, e eventlog.Event) error {
	var data interface{}
	if len(e.Data) > 0 {
		encoded, err := json.Marshal(e.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		data = string(encoded)
	}

	var actor interface{}
	if e.ActorID != "" {
		actor = e.ActorID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, household_id, actor_id, event_type, event_data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.HouseholdID, actor, e.Type, data, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListEventsByHousehold lists a household's activity, newest first.
func (s *SQLiteStore) ListEventsByHousehold(ctx context.Context, householdID string, limit int) ([]eventlog.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, household_id, actor_id, event_type, event_data, created_at
		 FROM events WHERE household_id = ?
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		householdID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []eventlog.Event
	for rows.Next() {
		var e eventlog.Event
		var actor, data sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.HouseholdID, &actor, &e.Type, &data, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if actor.Valid {
			e.ActorID = actor.String
		}
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event data: %w", err)
			}
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
