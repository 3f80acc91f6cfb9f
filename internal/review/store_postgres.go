package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// PostgresStore persists reviews. The booking id carries a unique index;
// rating and helpful votes are JSONB sub-documents.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

const reviewColumns = `
	id, booking_id, plan_id, author_id, rating, title, comment, anonymous,
	moderation_status, helpful_votes, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *Review) error {
	rating, votes, err := marshalReviewDocs(r)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.pool.Exec(ctx, query,
		r.ID.String(), r.BookingID.String(), r.PlanID.String(), r.AuthorID.String(),
		rating, r.Title, r.Comment, r.Anonymous, string(r.Moderation), votes,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, reviewID id.ReviewID) (*Review, error) {
	return s.findOne(ctx, `WHERE id = $1`, reviewID.String())
}

func (s *PostgresStore) FindByBooking(ctx context.Context, bookingID id.BookingID) (*Review, error) {
	return s.findOne(ctx, `WHERE booking_id = $1`, bookingID.String())
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews ` + where
	row := s.pool.QueryRow(ctx, query, arg)
	return scanReview(row)
}

func (s *PostgresStore) ListByPlan(ctx context.Context, filter ListFilter) ([]*Review, int64, error) {
	where := []string{"plan_id = $1"}
	args := []any{filter.PlanID.String()}
	if filter.ApprovedOnly {
		args = append(args, string(ModerationApproved))
		where = append(where, fmt.Sprintf("moderation_status = $%d", len(args)))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM reviews`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reviews: %w", err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := fmt.Sprintf(`SELECT %s FROM reviews%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		reviewColumns, clause, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	items := []*Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, r *Review) error {
	rating, votes, err := marshalReviewDocs(r)
	if err != nil {
		return err
	}

	query := `
		UPDATE reviews SET
			rating = $2, title = $3, comment = $4, anonymous = $5,
			moderation_status = $6, helpful_votes = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		r.ID.String(), rating, r.Title, r.Comment, r.Anonymous,
		string(r.Moderation), votes, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, reviewID id.ReviewID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, reviewID.String())
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AggregateByPlan(ctx context.Context, planID id.PlanID) (float64, int, error) {
	query := `
		SELECT coalesce(avg((rating->>'overall')::float), 0), count(*)
		FROM reviews
		WHERE plan_id = $1 AND moderation_status = $2
	`
	var avg float64
	var count int
	err := s.pool.QueryRow(ctx, query, planID.String(), string(ModerationApproved)).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("aggregate reviews: %w", err)
	}
	return math.Round(avg*10) / 10, count, nil
}

func (s *PostgresStore) CountByAuthor(ctx context.Context, authorID id.UserID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM reviews WHERE author_id = $1`, authorID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func marshalReviewDocs(r *Review) (rating, votes []byte, err error) {
	if rating, err = json.Marshal(r.Rating); err != nil {
		return nil, nil, fmt.Errorf("marshal rating: %w", err)
	}
	if r.HelpfulVotes == nil {
		r.HelpfulVotes = []id.UserID{}
	}
	if votes, err = json.Marshal(r.HelpfulVotes); err != nil {
		return nil, nil, fmt.Errorf("marshal helpful votes: %w", err)
	}
	return rating, votes, nil
}

func scanReview(row pgx.Row) (*Review, error) {
	var (
		r                          Review
		rawID, rawBooking, rawPlan string
		rawAuthor, rawStatus       string
		rating, votes              []byte
	)
	err := row.Scan(
		&rawID, &rawBooking, &rawPlan, &rawAuthor, &rating, &r.Title,
		&r.Comment, &r.Anonymous, &rawStatus, &votes, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan review: %w", err)
	}

	if r.ID, err = id.ParseReviewID(rawID); err != nil {
		return nil, fmt.Errorf("parse review id: %w", err)
	}
	if r.BookingID, err = id.ParseBookingID(rawBooking); err != nil {
		return nil, fmt.Errorf("parse booking id: %w", err)
	}
	if r.PlanID, err = id.ParsePlanID(rawPlan); err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	if r.AuthorID, err = id.ParseUserID(rawAuthor); err != nil {
		return nil, fmt.Errorf("parse author id: %w", err)
	}
	r.Moderation = ModerationStatus(rawStatus)

	if err := json.Unmarshal(rating, &r.Rating); err != nil {
		return nil, fmt.Errorf("unmarshal rating: %w", err)
	}
	r.HelpfulVotes = []id.UserID{}
	if len(votes) > 0 {
		if err := json.Unmarshal(votes, &r.HelpfulVotes); err != nil {
			return nil, fmt.Errorf("unmarshal helpful votes: %w", err)
		}
	}
	return &r, nil
}
