package datacloud

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
)

const eventLogSchema = `
CREATE TABLE IF NOT EXISTS data_cloud_events (
    id VARCHAR PRIMARY KEY,
    action VARCHAR NOT NULL,
    event_type VARCHAR NOT NULL,
    event_prompt VARCHAR,
    source_object VARCHAR,
    published_at VARCHAR,
    payload VARCHAR,
    received_at TIMESTAMP
);
`

// EventStore records webhook events in an embedded DuckDB file. Writes
// happen on the request path in one transaction per delivery, so a 204
// response means the batch is on disk.
type EventStore struct {
	db   *sql.DB
	path string
}

// NewEventStore opens (or creates) the event log database.
func NewEventStore(dbPath string) (*EventStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.Exec(eventLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize event log schema: %w", err)
	}

	// Security hardening
	if _, err := db.Exec("SET enable_external_access=false"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set security settings: %w", err)
	}

	return &EventStore{db: db, path: dbPath}, nil
}

// Insert logs a batch of normalized events in a single transaction and
// returns them in stored form, IDs and receipt time assigned.
func (s *EventStore) Insert(ctx context.Context, events []Event) ([]StoredEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	stored := make([]StoredEvent, 0, len(events))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin event transaction: %w", err)
	}
	for _, e := range events {
		payload := ""
		if len(e.PayloadCurrentValue) > 0 {
			b, err := json.Marshal(e.PayloadCurrentValue)
			if err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("encode event payload: %w", err)
			}
			payload = string(b)
		}

		se := StoredEvent{
			ID:           uuid.NewString(),
			Action:       e.ActionDeveloperName,
			EventType:    e.EventType,
			EventPrompt:  e.EventPrompt,
			SourceObject: e.SourceObjectDeveloperName,
			PublishedAt:  e.EventPublishDateTime,
			Payload:      e.PayloadCurrentValue,
			ReceivedAt:   now,
		}
		_, err := tx.Exec(`
			INSERT INTO data_cloud_events
				(id, action, event_type, event_prompt, source_object, published_at, payload, received_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, se.ID, se.Action, se.EventType, se.EventPrompt, se.SourceObject, se.PublishedAt, payload, now)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("insert event %s: %w", se.ID, err)
		}
		stored = append(stored, se)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit events: %w", err)
	}
	return stored, nil
}

// List returns logged events matching the filter, newest first.
func (s *EventStore) List(ctx context.Context, filter EventFilter) ([]StoredEvent, error) {
	query := "SELECT id, action, event_type, event_prompt, source_object, published_at, payload, received_at FROM data_cloud_events"
	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.SourceObject != "" {
		conditions = append(conditions, "source_object = ?")
		args = append(args, filter.SourceObject)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "received_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY received_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var se StoredEvent
		var payload string
		if err := rows.Scan(&se.ID, &se.Action, &se.EventType, &se.EventPrompt,
			&se.SourceObject, &se.PublishedAt, &payload, &se.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &se.Payload); err != nil {
				return nil, fmt.Errorf("decode event payload %s: %w", se.ID, err)
			}
		}
		events = append(events, se)
	}
	return events, rows.Err()
}

// Count returns the number of logged events.
func (s *EventStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM data_cloud_events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Stats returns event log statistics.
func (s *EventStore) Stats(ctx context.Context) (*LogStats, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := &LogStats{Events: n, DBPath: s.path}
	if info, err := os.Stat(s.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}
	return stats, nil
}

// Close releases the database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}
