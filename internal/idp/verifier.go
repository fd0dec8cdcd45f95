// Package idp verifies federated identity-provider ID tokens and normalizes
// their claims into a provider-independent profile.
package idp

import (
	"context"
	"errors"

	"legalrisk/backend/internal/identity/domain"
)

// ErrInvalidIDToken is returned for any unverifiable, expired, or malformed
// ID token. Verification failures are never distinguished to callers.
var ErrInvalidIDToken = errors.New("invalid identity token")

// Profile is the normalized identity returned by a successful verification.
type Profile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// Verifier exchanges a provider ID token for a normalized profile.
type Verifier interface {
	Verify(ctx context.Context, provider domain.Provider, idToken string) (*Profile, error)
}

// Registry routes verification to a per-provider verifier.
type Registry struct {
	verifiers map[domain.Provider]Verifier
}

// NewRegistry returns an empty registry. Providers without a registered
// verifier fail verification with ErrInvalidIDToken.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[domain.Provider]Verifier)}
}

// Register installs v for the given provider, replacing any previous verifier.
func (r *Registry) Register(provider domain.Provider, v Verifier) {
	r.verifiers[provider] = v
}

// Verify dispatches to the provider's verifier.
func (r *Registry) Verify(ctx context.Context, provider domain.Provider, idToken string) (*Profile, error) {
	v, ok := r.verifiers[provider]
	if !ok {
		return nil, ErrInvalidIDToken
	}
	return v.Verify(ctx, provider, idToken)
}
