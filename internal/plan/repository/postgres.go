package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"legalrisk/backend/internal/db"
	"legalrisk/backend/internal/plan/domain"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a plan repository over the given querier.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// ActiveSubscriptionPlan returns the plan behind the newest effective
// subscription for the user at the given instant, or nil when none.
func (r *PostgresRepository) ActiveSubscriptionPlan(ctx context.Context, userID string, at time.Time) (*domain.Plan, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT p.id, p.code, p.limits, p.active, p.created_at
		 FROM subscriptions s
		 JOIN plans p ON p.id = s.plan_id
		 WHERE s.user_id = $1
		   AND s.status IN ('active', 'in_trial')
		   AND (s.current_period_start IS NULL OR s.current_period_start <= $2)
		   AND (s.current_period_end IS NULL OR s.current_period_end > $2)
		 ORDER BY s.created_at DESC
		 LIMIT 1`,
		userID, at)
	return scanPlan(row)
}

// GetByCode returns the active plan with the given code, or nil if none.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*domain.Plan, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, code, limits, active, created_at
		 FROM plans
		 WHERE code = $1 AND active
		 LIMIT 1`,
		code)
	return scanPlan(row)
}

func scanPlan(row *sql.Row) (*domain.Plan, error) {
	var p domain.Plan
	var limits []byte
	err := row.Scan(&p.ID, &p.Code, &limits, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(limits) > 0 {
		p.Limits = &domain.Limits{}
		if err := json.Unmarshal(limits, p.Limits); err != nil {
			return nil, fmt.Errorf("plan %s: bad limits payload: %w", p.Code, err)
		}
	}
	return &p, nil
}
