package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	id "roamly/pkg/domain"
	"roamly/pkg/platform/sentinel"
)

// PostgresStore persists users. Preferences, social links, and favorites are
// JSONB sub-documents owned by the row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	prefs, socials, favorites, err := marshalEmbedded(u)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (
			id, email, password_hash, first_name, last_name, phone, avatar_url,
			role, is_resident, active, preferences, social_links, favorites,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.pool.Exec(ctx, query,
		u.ID.String(), u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		u.AvatarURL, u.Role.String(), u.IsResident, u.Active, prefs, socials,
		favorites, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*User, error) {
	return s.findOne(ctx, `WHERE id = $1`, userID.String())
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, email, password_hash, first_name, last_name, phone, avatar_url,
		       role, is_resident, active, preferences, social_links, favorites,
		       created_at, updated_at
		FROM users ` + where

	row := s.pool.QueryRow(ctx, query, arg)
	return scanUser(row)
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	prefs, socials, favorites, err := marshalEmbedded(u)
	if err != nil {
		return err
	}

	query := `
		UPDATE users SET
			email = $2, password_hash = $3, first_name = $4, last_name = $5,
			phone = $6, avatar_url = $7, role = $8, is_resident = $9, active = $10,
			preferences = $11, social_links = $12, favorites = $13, updated_at = $14
		WHERE id = $1
	`
	tag, err := s.pool.Exec(ctx, query,
		u.ID.String(), u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone,
		u.AvatarURL, u.Role.String(), u.IsResident, u.Active, prefs, socials,
		favorites, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func marshalEmbedded(u *User) (prefs, socials, favorites []byte, err error) {
	prefs, err = json.Marshal(u.Preferences)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal preferences: %w", err)
	}
	socials, err = json.Marshal(u.SocialLinks)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal social links: %w", err)
	}
	favorites, err = json.Marshal(u.Favorites)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal favorites: %w", err)
	}
	return prefs, socials, favorites, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                       User
		idStr, roleStr          string
		prefs, socials, favList []byte
	)
	err := row.Scan(&idStr, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Phone, &u.AvatarURL, &roleStr, &u.IsResident, &u.Active, &prefs,
		&socials, &favList, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.ID, err = id.ParseUserID(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	u.Role, err = id.ParseRole(roleStr)
	if err != nil {
		return nil, fmt.Errorf("parse role: %w", err)
	}
	if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if len(socials) > 0 {
		if err := json.Unmarshal(socials, &u.SocialLinks); err != nil {
			return nil, fmt.Errorf("unmarshal social links: %w", err)
		}
	}
	if len(favList) > 0 {
		if err := json.Unmarshal(favList, &u.Favorites); err != nil {
			return nil, fmt.Errorf("unmarshal favorites: %w", err)
		}
	}
	return &u, nil
}
