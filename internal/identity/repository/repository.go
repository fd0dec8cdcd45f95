package repository

import (
	"context"

	"legalrisk/backend/internal/identity/domain"
)

// Repository defines persistence for federated identities.
type Repository interface {
	GetByProvider(ctx context.Context, provider domain.Provider, providerUserID string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
}
