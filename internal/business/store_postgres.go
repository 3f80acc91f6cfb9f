package business

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

// PostgresStore persists businesses. Contact, address, verification, banking,
// rating, and stats live as JSONB sub-documents on the row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

const businessColumns = `
	id, owner_id, name, description, registration_number, contact, address,
	verification, banking, rating, stats, active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, b *Business) error {
	docs, err := marshalBusinessDocs(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.pool.Exec(ctx, query,
		b.ID.String(), b.OwnerID.String(), b.Name, b.Description,
		strings.ToUpper(strings.TrimSpace(b.RegistrationNumber)),
		docs.contact, docs.address, docs.verification, docs.banking,
		docs.rating, docs.stats, b.Active, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, businessID id.BusinessID) (*Business, error) {
	return s.findOne(ctx, `WHERE id = $1`, businessID.String())
}

func (s *PostgresStore) FindByRegistrationNumber(ctx context.Context, regNumber string) (*Business, error) {
	return s.findOne(ctx, `WHERE registration_number = upper(trim($1))`, regNumber)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses ` + where
	row := s.pool.QueryRow(ctx, query, arg)
	return scanBusiness(row)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*Business, int64, error) {
	where := []string{"active = true"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.City != "" {
		where = append(where, "lower(address->>'city') = lower("+arg(filter.City)+")")
	}
	if filter.Status != "" {
		where = append(where, "verification->>'status' = "+arg(string(filter.Status)))
	}
	if !filter.OwnerID.IsNil() {
		where = append(where, "owner_id = "+arg(filter.OwnerID.String()))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM businesses`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count businesses: %w", err)
	}

	query := `SELECT ` + businessColumns + ` FROM businesses` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(filter.Limit) + ` OFFSET ` + arg((filter.Page-1)*filter.Limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	items := []*Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, b *Business) error {
	docs, err := marshalBusinessDocs(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE businesses SET
			name = $2, description = $3, registration_number = $4, contact = $5,
			address = $6, verification = $7, banking = $8, rating = $9,
			stats = $10, active = $11, updated_at = $12
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		b.ID.String(), b.Name, b.Description,
		strings.ToUpper(strings.TrimSpace(b.RegistrationNumber)),
		docs.contact, docs.address, docs.verification, docs.banking,
		docs.rating, docs.stats, b.Active, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type businessDocs struct {
	contact      []byte
	address      []byte
	verification []byte
	banking      []byte
	rating       []byte
	stats        []byte
}

func marshalBusinessDocs(b *Business) (businessDocs, error) {
	var docs businessDocs
	var err error
	if docs.contact, err = json.Marshal(b.Contact); err != nil {
		return docs, fmt.Errorf("marshal contact: %w", err)
	}
	if docs.address, err = json.Marshal(b.Address); err != nil {
		return docs, fmt.Errorf("marshal address: %w", err)
	}
	if docs.verification, err = json.Marshal(b.Verification); err != nil {
		return docs, fmt.Errorf("marshal verification: %w", err)
	}
	if docs.banking, err = json.Marshal(b.Banking); err != nil {
		return docs, fmt.Errorf("marshal banking: %w", err)
	}
	if docs.rating, err = json.Marshal(b.Rating); err != nil {
		return docs, fmt.Errorf("marshal rating: %w", err)
	}
	if docs.stats, err = json.Marshal(b.Stats); err != nil {
		return docs, fmt.Errorf("marshal stats: %w", err)
	}
	return docs, nil
}

func scanBusiness(row pgx.Row) (*Business, error) {
	var (
		b                    Business
		rawID, rawOwner      string
		contact, address     []byte
		verification         []byte
		banking, rating      []byte
		stats                []byte
	)
	err := row.Scan(
		&rawID, &rawOwner, &b.Name, &b.Description, &b.RegistrationNumber,
		&contact, &address, &verification, &banking, &rating, &stats,
		&b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan business: %w", err)
	}

	if b.ID, err = id.ParseBusinessID(rawID); err != nil {
		return nil, fmt.Errorf("parse business id: %w", err)
	}
	if b.OwnerID, err = id.ParseUserID(rawOwner); err != nil {
		return nil, fmt.Errorf("parse owner id: %w", err)
	}
	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{contact, &b.Contact},
		{address, &b.Address},
		{verification, &b.Verification},
		{banking, &b.Banking},
		{rating, &b.Rating},
		{stats, &b.Stats},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("unmarshal business doc: %w", err)
		}
	}
	return &b, nil
}
