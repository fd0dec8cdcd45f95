// Package store bundles the repositories behind a unit-of-work boundary so
// read-then-write sequences (resolve-then-create, revoke-then-create) are a
// type-level contract rather than an implicit side effect.
package store

import (
	"context"

	identityrepo "legalrisk/backend/internal/identity/repository"
	sessionrepo "legalrisk/backend/internal/session/repository"
	userrepo "legalrisk/backend/internal/user/repository"
)

// Store exposes the repositories participating in auth transactions. All
// repositories returned from one Store share the same querier.
type Store interface {
	Users() userrepo.Repository
	Identities() identityrepo.Repository
	Sessions() sessionrepo.Repository
}

// UnitOfWork runs a function against a transactional Store. Do commits when
// fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	// View returns a non-transactional Store for single reads that need no
	// isolation with a subsequent write.
	View() Store
}
