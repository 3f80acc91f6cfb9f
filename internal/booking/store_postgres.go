package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// PostgresStore persists bookings. Guests, pricing, payment, contact, and
// the status history are JSONB sub-documents; the confirmation code carries
// a unique index.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

const bookingColumns = `
	id, user_id, plan_id, business_id, plan_owner_id, date, time_slot, guests,
	pricing, status, status_history, confirmation_code, payment, contact,
	special_requests, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, b *Booking) error {
	docs, err := marshalBookingDocs(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = s.pool.Exec(ctx, query,
		b.ID.String(), b.UserID.String(), b.PlanID.String(), businessIDArg(b),
		b.PlanOwnerID.String(), b.Date, b.TimeSlot, docs.guests, docs.pricing,
		string(b.Status), docs.history, b.ConfirmationCode, docs.payment,
		docs.contact, b.SpecialRequests, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, bookingID id.BookingID) (*Booking, error) {
	return s.findOne(ctx, `WHERE id = $1`, bookingID.String())
}

func (s *PostgresStore) FindByConfirmationCode(ctx context.Context, code string) (*Booking, error) {
	return s.findOne(ctx, `WHERE confirmation_code = $1`, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ` + where
	row := s.pool.QueryRow(ctx, query, arg)
	return scanBooking(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, filter ListFilter) ([]*Booking, int64, error) {
	where := []string{"user_id = $1"}
	args := []any{filter.UserID.String()}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM bookings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, clause, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	items := []*Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, b *Booking) error {
	docs, err := marshalBookingDocs(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE bookings SET
			date = $2, time_slot = $3, guests = $4, pricing = $5, status = $6,
			status_history = $7, payment = $8, special_requests = $9, updated_at = $10
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		b.ID.String(), b.Date, b.TimeSlot, docs.guests, docs.pricing,
		string(b.Status), docs.history, docs.payment, b.SpecialRequests, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountByUser(ctx context.Context, userID id.UserID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM bookings WHERE user_id = $1`, userID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}

type bookingDocs struct {
	guests  []byte
	pricing []byte
	history []byte
	payment []byte
	contact []byte
}

func marshalBookingDocs(b *Booking) (bookingDocs, error) {
	var docs bookingDocs
	var err error
	if docs.guests, err = json.Marshal(b.Guests); err != nil {
		return docs, fmt.Errorf("marshal guests: %w", err)
	}
	if docs.pricing, err = json.Marshal(b.Pricing); err != nil {
		return docs, fmt.Errorf("marshal pricing: %w", err)
	}
	if docs.history, err = json.Marshal(b.StatusHistory); err != nil {
		return docs, fmt.Errorf("marshal status history: %w", err)
	}
	if docs.payment, err = json.Marshal(b.Payment); err != nil {
		return docs, fmt.Errorf("marshal payment: %w", err)
	}
	if docs.contact, err = json.Marshal(b.Contact); err != nil {
		return docs, fmt.Errorf("marshal contact: %w", err)
	}
	return docs, nil
}

func businessIDArg(b *Booking) any {
	if b.BusinessID == nil {
		return nil
	}
	return b.BusinessID.String()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b                        Booking
		rawID, rawUser, rawPlan  string
		rawBusiness              *string
		rawPlanOwner, rawStatus  string
		guests, pricing, history []byte
		payment, contact         []byte
	)
	err := row.Scan(
		&rawID, &rawUser, &rawPlan, &rawBusiness, &rawPlanOwner, &b.Date,
		&b.TimeSlot, &guests, &pricing, &rawStatus, &history,
		&b.ConfirmationCode, &payment, &contact, &b.SpecialRequests,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}

	if b.ID, err = id.ParseBookingID(rawID); err != nil {
		return nil, fmt.Errorf("parse booking id: %w", err)
	}
	if b.UserID, err = id.ParseUserID(rawUser); err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	if b.PlanID, err = id.ParsePlanID(rawPlan); err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	if rawBusiness != nil {
		businessID, err := id.ParseBusinessID(*rawBusiness)
		if err != nil {
			return nil, fmt.Errorf("parse business id: %w", err)
		}
		b.BusinessID = &businessID
	}
	if b.PlanOwnerID, err = id.ParseUserID(rawPlanOwner); err != nil {
		return nil, fmt.Errorf("parse plan owner id: %w", err)
	}
	b.Status = Status(rawStatus)

	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{guests, &b.Guests},
		{pricing, &b.Pricing},
		{history, &b.StatusHistory},
		{payment, &b.Payment},
		{contact, &b.Contact},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("unmarshal booking doc: %w", err)
		}
	}
	return &b, nil
}
