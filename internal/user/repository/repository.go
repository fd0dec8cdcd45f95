package repository

import (
	"context"

	"legalrisk/backend/internal/user/domain"
)

// Repository defines persistence for users. Lookups exclude soft-deleted rows.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateProfile(ctx context.Context, id string, name, avatarURL *string) error
}
