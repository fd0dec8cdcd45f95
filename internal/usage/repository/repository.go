package repository

import (
	"context"
	"time"
)

// Repository reads per-user weekly usage counters. The analysis executor
// owns the writes; a missing row always means zero usage, never an error.
type Repository interface {
	WeekCount(ctx context.Context, userID string, weekStart time.Time) (int, error)
}
