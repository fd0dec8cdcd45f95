package repository

import (
	"context"
	"time"

	"legalrisk/backend/internal/plan/domain"
)

// Repository defines read-only access to plans and subscriptions. Billing
// writes these tables; this service only resolves effective limits.
type Repository interface {
	// ActiveSubscriptionPlan returns the plan of the user's effective
	// subscription at the given instant: status active/in_trial, validity
	// window (when set) containing the instant, newest created_at wins.
	// Returns nil when the user has no effective subscription.
	ActiveSubscriptionPlan(ctx context.Context, userID string, at time.Time) (*domain.Plan, error)
	// GetByCode returns the active plan with the given code, or nil.
	GetByCode(ctx context.Context, code string) (*domain.Plan, error)
}
