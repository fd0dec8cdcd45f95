package repository

import (
	"context"
	"database/sql"
	"errors"

	"legalrisk/backend/internal/db"
	"legalrisk/backend/internal/identity/domain"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns an identity repository over the given querier,
// which may be a *sql.DB or a *sql.Tx.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// GetByProvider returns the identity for (provider, providerUserID), or nil
// if not found. Returns an error only for database failures.
func (r *PostgresRepository) GetByProvider(ctx context.Context, provider domain.Provider, providerUserID string) (*domain.Identity, error) {
	var i domain.Identity
	var rawProfile []byte
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_user_id, email_verified, raw_profile, created_at
		 FROM user_identities
		 WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	).Scan(&i.ID, &i.UserID, &i.Provider, &i.ProviderUserID, &i.EmailVerified, &rawProfile, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.RawProfile = rawProfile
	return &i, nil
}

// Create persists the identity and fills in its generated ID. A unique
// violation on (provider, provider_user_id) surfaces unchanged so callers
// can detect concurrent creation.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	return r.q.QueryRowContext(ctx,
		`INSERT INTO user_identities (user_id, provider, provider_user_id, email_verified, raw_profile, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		i.UserID, i.Provider, i.ProviderUserID, i.EmailVerified, nilIfEmpty(i.RawProfile), i.CreatedAt,
	).Scan(&i.ID)
}

func nilIfEmpty(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
