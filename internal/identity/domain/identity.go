package domain

import "time"

// Identity links a user to one federated identity provider account.
// (provider, provider_user_id) is globally unique: one external identity
// maps to exactly one local user.
type Identity struct {
	ID             int64
	UserID         string
	Provider       Provider
	ProviderUserID string
	EmailVerified  bool
	RawProfile     []byte // opaque provider profile blob (JSON)
	CreatedAt      time.Time
}

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// Valid reports whether p is a supported identity provider.
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderApple
}
