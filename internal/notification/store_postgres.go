package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// PostgresStore persists notifications with channel state and data as
// JSONB sub-documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const notificationColumns = `
	id, recipient_id, type, title, body, data, channels, read, expires_at,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	data, channels, err := marshalNotificationDocs(n)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = s.pool.Exec(ctx, query,
		n.ID.String(), n.RecipientID.String(), string(n.Type), n.Title, n.Body,
		data, channels, n.Read, n.ExpiresAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, notificationID.String())
	return scanNotification(row)
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, filter ListFilter) ([]*Notification, int64, error) {
	where := []string{"recipient_id = $1", "(expires_at IS NULL OR expires_at > $2)"}
	args := []any{filter.RecipientID.String(), time.Now().UTC()}
	if filter.UnreadOnly {
		where = append(where, "read = false")
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM notifications`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		notificationColumns, clause, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := []*Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, n *Notification) error {
	data, channels, err := marshalNotificationDocs(n)
	if err != nil {
		return err
	}

	query := `
		UPDATE notifications SET
			data = $2, channels = $3, read = $4, updated_at = $5
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		n.ID.String(), data, channels, n.Read, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, recipientID id.UserID) (int64, error) {
	query := `
		UPDATE notifications SET read = true, updated_at = $2
		WHERE recipient_id = $1 AND read = false
	`
	tag, err := s.pool.Exec(ctx, query, recipientID.String(), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func marshalNotificationDocs(n *Notification) (data, channels []byte, err error) {
	if n.Data != nil {
		if data, err = json.Marshal(n.Data); err != nil {
			return nil, nil, fmt.Errorf("marshal data: %w", err)
		}
	}
	if channels, err = json.Marshal(n.Channels); err != nil {
		return nil, nil, fmt.Errorf("marshal channels: %w", err)
	}
	return data, channels, nil
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var (
		n                           Notification
		rawID, rawRecipient, rawTyp string
		data, channels              []byte
	)
	err := row.Scan(
		&rawID, &rawRecipient, &rawTyp, &n.Title, &n.Body, &data, &channels,
		&n.Read, &n.ExpiresAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	if n.ID, err = id.ParseNotificationID(rawID); err != nil {
		return nil, fmt.Errorf("parse notification id: %w", err)
	}
	if n.RecipientID, err = id.ParseUserID(rawRecipient); err != nil {
		return nil, fmt.Errorf("parse recipient id: %w", err)
	}
	n.Type = Type(rawTyp)

	if len(data) > 0 {
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("unmarshal data: %w", err)
		}
	}
	if len(channels) > 0 {
		if err := json.Unmarshal(channels, &n.Channels); err != nil {
			return nil, fmt.Errorf("unmarshal channels: %w", err)
		}
	}
	return &n, nil
}
