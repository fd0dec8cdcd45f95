package repository

import (
	"context"

	"legalrisk/backend/internal/session/domain"
)

// Repository defines persistence for refresh sessions. All operations run
// against the querier the repository was built over, so a caller holding a
// transaction gets transactional semantics for read-then-write sequences.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetActiveByID returns the non-revoked session with the given jti, or
	// nil when none exists. Expiry is deliberately not checked here: callers
	// check it to distinguish "expired" from "revoked".
	GetActiveByID(ctx context.Context, jti string) (*domain.Session, error)
	// Revoke marks the session revoked. Idempotent: revoking an already
	// revoked or nonexistent session is a no-op. The returned bool reports
	// whether this call transitioned the session, which lets two concurrent
	// rotations of the same secret decide a single winner.
	Revoke(ctx context.Context, jti string) (bool, error)
}
