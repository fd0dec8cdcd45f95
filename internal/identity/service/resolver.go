// Package service resolves verified provider profiles to local users,
// creating or linking accounts as needed.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"legalrisk/backend/internal/identity/domain"
	"legalrisk/backend/internal/idp"
	"legalrisk/backend/internal/store"
	userdomain "legalrisk/backend/internal/user/domain"
)

// Resolve maps a verified provider profile to a local user, in precedence
// order: an existing identity for (provider, providerUserID); an existing
// user with the same email, to which the identity is attached; otherwise a
// fresh user plus identity. Runs against the caller's store, so login holds
// one transaction across the whole resolution.
//
// Concurrent first logins with the same profile race on the identity unique
// constraint; that surfaces as a unique violation and the caller retries the
// transaction.
func Resolve(ctx context.Context, s store.Store, provider domain.Provider, p *idp.Profile) (*userdomain.User, error) {
	ident, err := s.Identities().GetByProvider(ctx, provider, p.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", err)
	}
	if ident != nil {
		u, err := s.Users().GetByID(ctx, ident.UserID)
		if err != nil {
			return nil, fmt.Errorf("lookup identity user: %w", err)
		}
		if u == nil {
			return nil, fmt.Errorf("identity %d references missing user %s", ident.ID, ident.UserID)
		}
		return u, nil
	}

	u, err := s.Users().GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if u == nil {
		u = &userdomain.User{
			ID:        uuid.New().String(),
			Email:     p.Email,
			Name:      p.Name,
			AvatarURL: p.AvatarURL,
			Role:      userdomain.DefaultRole,
			CreatedAt: time.Now().UTC(),
		}
		if err := u.Validate(); err != nil {
			return nil, err
		}
		if err := s.Users().Create(ctx, u); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal provider profile: %w", err)
	}
	if err := s.Identities().Create(ctx, &domain.Identity{
		UserID:         u.ID,
		Provider:       provider,
		ProviderUserID: p.ProviderUserID,
		EmailVerified:  p.EmailVerified,
		RawProfile:     raw,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return u, nil
}
