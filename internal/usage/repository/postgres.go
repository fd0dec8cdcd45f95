package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"legalrisk/backend/internal/db"
)

type PostgresRepository struct {
	q db.DBTX
}

// NewPostgresRepository returns a usage repository over the given querier.
func NewPostgresRepository(q db.DBTX) *PostgresRepository {
	return &PostgresRepository{q: q}
}

// WeekCount returns the analyses count for (userID, weekStart). The window
// key is the local Monday date; only the date part of weekStart is used.
func (r *PostgresRepository) WeekCount(ctx context.Context, userID string, weekStart time.Time) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		`SELECT analyses_count FROM user_usage_windows
		 WHERE user_id = $1 AND window_start = $2::date
		 LIMIT 1`,
		userID, weekStart.Format("2006-01-02"),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
