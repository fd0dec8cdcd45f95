package repository

import (
	"context"
	"database/sql"
	"errors"

	"legalrisk/backend/internal/db"
	"legalrisk/backend/internal/user/domain"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a user repository over the given querier,
// which may be a *sql.DB or a *sql.Tx.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

const userColumns = `id, email, COALESCE(name, ''), COALESCE(avatar_url, ''), role, created_at, deleted_at`

// GetByID returns the user for id, or nil if not found or soft-deleted.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanUser(row)
}

// GetByEmail returns the user for email, or nil if not found or soft-deleted.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email)
	return scanUser(row)
}

// Create persists the user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, role, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)`,
		u.ID, u.Email, u.Name, u.AvatarURL, u.Role, u.CreatedAt)
	return err
}

// UpdateProfile sets name and/or avatar_url; nil arguments leave the column unchanged.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, name, avatarURL *string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users
		 SET name = COALESCE(NULLIF($2, ''), name),
		     avatar_url = COALESCE($3, avatar_url)
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, strOrEmpty(name), avatarURL)
	return err
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var deletedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Role, &u.CreatedAt, &deletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}
	return &u, nil
}
