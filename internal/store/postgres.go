package store

import (
	"context"
	"database/sql"

	"legalrisk/backend/internal/db"
	identityrepo "legalrisk/backend/internal/identity/repository"
	sessionrepo "legalrisk/backend/internal/session/repository"
	userrepo "legalrisk/backend/internal/user/repository"
)

// Postgres implements UnitOfWork over *sql.DB using database/sql transactions.
type Postgres struct {
	db *sql.DB
}

// NewPostgres returns a Postgres unit of work over the given database.
func NewPostgres(database *sql.DB) *Postgres {
	return &Postgres{db: database}
}

// Do runs fn inside one transaction; all repositories handed to fn are bound
// to that transaction.
func (p *Postgres) Do(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return db.RunInTx(ctx, p.db, func(tx *sql.Tx) error {
		return fn(ctx, querierStore{q: tx})
	})
}

// View returns a Store bound directly to the database, outside any transaction.
func (p *Postgres) View() Store {
	return querierStore{q: p.db}
}

type querierStore struct {
	q db.DBTX
}

func (s querierStore) Users() userrepo.Repository {
	return userrepo.NewPostgresRepository(s.q)
}

func (s querierStore) Identities() identityrepo.Repository {
	return identityrepo.NewPostgresRepository(s.q)
}

func (s querierStore) Sessions() sessionrepo.Repository {
	return sessionrepo.NewPostgresRepository(s.q)
}
