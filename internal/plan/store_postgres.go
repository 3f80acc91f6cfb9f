package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// PostgresStore persists plans with JSONB sub-documents for price, address,
// capacity, schedule, rating, and stats.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

const planColumns = `
	id, owner_id, business_id, title, slug, description, category,
	price, duration_hours, address, capacity, difficulty, schedule,
	rating, stats, active, created_at, updated_at
`

func (s *PostgresStore) Create(ctx context.Context, p *Plan) error {
	docs, err := marshalPlanDocs(p)
	if err != nil {
		return err
	}

	var businessID *string
	if p.BusinessID != nil {
		v := p.BusinessID.String()
		businessID = &v
	}

	query := `
		INSERT INTO plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = s.pool.Exec(ctx, query,
		p.ID.String(), p.OwnerID.String(), businessID, p.Title, p.Slug, p.Description,
		string(p.Category), docs.price, p.DurationHours, docs.address, docs.capacity,
		string(p.Difficulty), docs.schedule, docs.rating, docs.stats, p.Active,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, planID id.PlanID) (*Plan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, planID.String())
	return scanPlan(row)
}

func (s *PostgresStore) FindBySlug(ctx context.Context, slug string) (*Plan, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plans WHERE slug = $1`, slug)
	return scanPlan(row)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Plan, int64, error) {
	where := []string{"active = TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Category != "" {
		where = append(where, "category = "+arg(string(filter.Category)))
	}
	if filter.City != "" {
		where = append(where, "lower(address->>'city') = lower("+arg(filter.City)+")")
	}
	if filter.MinPrice > 0 {
		where = append(where, "(price->>'amount')::numeric >= "+arg(filter.MinPrice))
	}
	if filter.MaxPrice > 0 {
		where = append(where, "(price->>'amount')::numeric <= "+arg(filter.MaxPrice))
	}
	if !filter.OwnerID.IsNil() {
		where = append(where, "owner_id = "+arg(filter.OwnerID.String()))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM plans WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}

	query := `SELECT ` + planColumns + ` FROM plans WHERE ` + cond +
		` ORDER BY created_at DESC LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg((filter.Page-1)*filter.Limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, p)
	}
	return plans, total, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, p *Plan) error {
	docs, err := marshalPlanDocs(p)
	if err != nil {
		return err
	}

	var businessID *string
	if p.BusinessID != nil {
		v := p.BusinessID.String()
		businessID = &v
	}

	query := `
		UPDATE plans SET
			business_id = $2, title = $3, description = $4, category = $5,
			price = $6, duration_hours = $7, address = $8, capacity = $9,
			difficulty = $10, schedule = $11, active = $12, updated_at = $13
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		p.ID.String(), businessID, p.Title, p.Description, string(p.Category),
		docs.price, p.DurationHours, docs.address, docs.capacity,
		string(p.Difficulty), docs.schedule, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementViews(ctx context.Context, planID id.PlanID) error {
	return s.bumpStat(ctx, planID, "views", 1)
}

func (s *PostgresStore) AdjustFavorites(ctx context.Context, planID id.PlanID, delta int64) error {
	return s.bumpStat(ctx, planID, "favorites", delta)
}

func (s *PostgresStore) IncrementBookings(ctx context.Context, planID id.PlanID) error {
	return s.bumpStat(ctx, planID, "bookings", 1)
}

// bumpStat adjusts one counter inside the stats JSONB atomically, clamping at
// zero so decrements cannot go negative.
func (s *PostgresStore) bumpStat(ctx context.Context, planID id.PlanID, field string, delta int64) error {
	query := `
		UPDATE plans SET stats = jsonb_set(
			stats, $2,
			to_jsonb(GREATEST(COALESCE((stats->>$3)::bigint, 0) + $4, 0))
		)
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query, planID.String(), []string{field}, field, delta)
	if err != nil {
		return fmt.Errorf("bump plan stat %s: %w", field, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetRating(ctx context.Context, planID id.PlanID, rating Rating) error {
	body, err := json.Marshal(rating)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE plans SET rating = $2 WHERE id = $1`, planID.String(), body)
	if err != nil {
		return fmt.Errorf("set plan rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type planDocs struct {
	price    []byte
	address  []byte
	capacity []byte
	schedule []byte
	rating   []byte
	stats    []byte
}

func marshalPlanDocs(p *Plan) (*planDocs, error) {
	var (
		docs planDocs
		err  error
	)
	if docs.price, err = json.Marshal(p.Price); err != nil {
		return nil, fmt.Errorf("marshal price: %w", err)
	}
	if docs.address, err = json.Marshal(p.Address); err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}
	if docs.capacity, err = json.Marshal(p.Capacity); err != nil {
		return nil, fmt.Errorf("marshal capacity: %w", err)
	}
	if docs.schedule, err = json.Marshal(p.Schedule); err != nil {
		return nil, fmt.Errorf("marshal schedule: %w", err)
	}
	if docs.rating, err = json.Marshal(p.Rating); err != nil {
		return nil, fmt.Errorf("marshal rating: %w", err)
	}
	if docs.stats, err = json.Marshal(p.Stats); err != nil {
		return nil, fmt.Errorf("marshal stats: %w", err)
	}
	return &docs, nil
}

func scanPlan(row pgx.Row) (*Plan, error) {
	var (
		p                        Plan
		idStr, ownerStr          string
		businessStr              *string
		categoryStr, difficulty  string
		price, address, capacity []byte
		schedule, rating, stats  []byte
	)
	err := row.Scan(&idStr, &ownerStr, &businessStr, &p.Title, &p.Slug, &p.Description,
		&categoryStr, &price, &p.DurationHours, &address, &capacity, &difficulty,
		&schedule, &rating, &stats, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}

	if p.ID, err = id.ParsePlanID(idStr); err != nil {
		return nil, fmt.Errorf("parse plan id: %w", err)
	}
	if p.OwnerID, err = id.ParseUserID(ownerStr); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	if businessStr != nil {
		businessID, err := id.ParseBusinessID(*businessStr)
		if err != nil {
			return nil, fmt.Errorf("parse business id: %w", err)
		}
		p.BusinessID = &businessID
	}
	p.Category = Category(categoryStr)
	p.Difficulty = Difficulty(difficulty)

	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{price, &p.Price}, {address, &p.Address}, {capacity, &p.Capacity},
		{schedule, &p.Schedule}, {rating, &p.Rating}, {stats, &p.Stats},
	} {
		if len(doc.raw) > 0 {
			if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
				return nil, fmt.Errorf("unmarshal plan document: %w", err)
			}
		}
	}
	return &p, nil
}
