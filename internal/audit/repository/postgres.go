package repository

import (
	"context"

	"legalrisk/backend/internal/audit/domain"
	"legalrisk/backend/internal/db"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns an audit repository over the given querier.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// Create persists one audit entry.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditLog) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, action, entity, entity_id, metadata, created_at)
		 VALUES (NULLIF($1, '')::uuid, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, '')::jsonb, $6)`,
		e.UserID, e.Action, e.Entity, e.EntityID, e.Metadata, e.CreatedAt)
	return err
}
