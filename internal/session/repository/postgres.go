package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"legalrisk/backend/internal/db"
	"legalrisk/backend/internal/session/domain"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a session repository over the given querier,
// which may be a *sql.DB or a *sql.Tx.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Create persists the session. The session must have ID and JTI set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO auth_sessions
		   (id, user_id, refresh_token_hash, jti, parent_jti, expires_at, user_agent, ip, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, '')::inet, $9)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.JTI, s.ParentJTI, s.ExpiresAt, s.UserAgent, s.IP, s.CreatedAt)
	return err
}

// GetActiveByID returns the non-revoked session for jti, or nil if none.
// When the repository is bound to a transaction the row is locked FOR UPDATE
// so a concurrent rotation of the same session blocks until this transaction
// decides.
func (r *PostgresRepository) GetActiveByID(ctx context.Context, jti string) (*domain.Session, error) {
	var s domain.Session
	var parentJTI sql.NullString
	var userAgent, ip sql.NullString
	var revokedAt sql.NullTime
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, refresh_token_hash, jti, parent_jti, expires_at, user_agent, ip::text, revoked_at, created_at
		 FROM auth_sessions
		 WHERE jti = $1 AND revoked_at IS NULL
		 FOR UPDATE`,
		jti,
	).Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.JTI, &parentJTI,
		&s.ExpiresAt, &userAgent, &ip, &revokedAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if parentJTI.Valid {
		s.ParentJTI = &parentJTI.String
	}
	s.UserAgent = userAgent.String
	s.IP = ip.String
	if revokedAt.Valid {
		s.RevokedAt = &revokedAt.Time
	}
	return &s, nil
}

// Revoke marks the session revoked if it is still active. Reports whether a
// row transitioned; already-revoked and nonexistent sessions affect zero rows.
func (r *PostgresRepository) Revoke(ctx context.Context, jti string) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE auth_sessions SET revoked_at = $2 WHERE jti = $1 AND revoked_at IS NULL`,
		jti, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
