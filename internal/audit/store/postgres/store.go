// Package postgres implements the audit store using the transactional outbox
// pattern. Events are written to the outbox table and published to Kafka by
// the outbox worker; Kafka is the source of truth for downstream consumers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"roamly/internal/audit"
)

// Store writes audit events to the audit_outbox table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// audit.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID        string         `json:"ID"`
	Category  string         `json:"Category"`
	Timestamp string         `json:"Timestamp"`
	ActorID   string         `json:"ActorID,omitempty"`
	Action    string         `json:"Action"`
	Subject   string         `json:"Subject,omitempty"`
	Method    string         `json:"Method,omitempty"`
	Path      string         `json:"Path,omitempty"`
	Status    int            `json:"Status,omitempty"`
	Severity  string         `json:"Severity"`
	Before    map[string]any `json:"Before,omitempty"`
	After     map[string]any `json:"After,omitempty"`
	RequestID string         `json:"RequestID,omitempty"`
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	// Category is always derived from the action - the eventCategories map is
	// the source of truth, never caller input.
	category := audit.Action(event.Action).Category()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		ActorID:   event.ActorID,
		Action:    event.Action,
		Subject:   event.Subject,
		Method:    event.Method,
		Path:      event.Path,
		Status:    event.Status,
		Severity:  string(event.Severity),
		Before:    event.Before,
		After:     event.After,
		RequestID: event.RequestID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, category, actor_id, payload, created_at, published_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`
	if _, err := s.db.ExecContext(ctx, query, eventID, string(category), event.ActorID, body, event.Timestamp); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByActor returns the stored events for one actor, oldest first.
func (s *Store) ListByActor(ctx context.Context, actorID string) ([]audit.Event, error) {
	query := `
		SELECT payload FROM audit_outbox
		WHERE actor_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p outboxPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
		events = append(events, audit.Event{
			Timestamp: ts,
			ActorID:   p.ActorID,
			Action:    p.Action,
			Subject:   p.Subject,
			Method:    p.Method,
			Path:      p.Path,
			Status:    p.Status,
			Severity:  audit.Severity(p.Severity),
			Before:    p.Before,
			After:     p.After,
			RequestID: p.RequestID,
		})
	}
	return events, rows.Err()
}

// PurgeOlderThan enforces retention by deleting published rows past the cutoff.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM audit_outbox
		WHERE created_at < $1 AND published_at IS NOT NULL
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit events: %w", err)
	}
	return res.RowsAffected()
}

// FetchUnpublished claims up to limit unpublished events for the worker.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, payload FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unpublished: %w", err)
	}
	defer rows.Close()

	var out []audit.OutboxRow
	for rows.Next() {
		var r audit.OutboxRow
		if err := rows.Scan(&r.ID, &r.Category, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkPublished stamps rows after a successful Kafka produce.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE audit_outbox SET published_at = $1
		WHERE id = ANY($2::uuid[])
	`, at, pqStringArray(raw))
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
