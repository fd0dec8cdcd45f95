package idp

import (
	"context"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"legalrisk/backend/internal/identity/domain"
)

const defaultLeeway = 30 * time.Second

// JWKSVerifier validates provider ID tokens (Google, Apple) against the
// provider's published JWKS and normalizes the claims.
type JWKSVerifier struct {
	issuer   string
	audience string
	keyfunc  keyfunc.Keyfunc
	parser   *jwt.Parser
}

// NewJWKSVerifier builds a verifier for one provider. jwksURL may be empty;
// then the conventional `<issuer>/.well-known/jwks.json` location is used.
// Construction fetches the JWKS and fails on misconfiguration, so a bad
// issuer is a startup error rather than a per-request one.
func NewJWKSVerifier(issuer, audience, jwksURL string) (*JWKSVerifier, error) {
	issuer = strings.TrimRight(strings.TrimSpace(issuer), "/")
	if issuer == "" || audience == "" {
		return nil, ErrInvalidIDToken
	}
	if jwksURL == "" {
		jwksURL = issuer + "/.well-known/jwks.json"
	}

	keyProvider, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Name,
			jwt.SigningMethodRS384.Name,
			jwt.SigningMethodRS512.Name,
			jwt.SigningMethodES256.Name,
		}),
	)

	return &JWKSVerifier{
		issuer:   issuer,
		audience: audience,
		keyfunc:  keyProvider,
		parser:   parser,
	}, nil
}

// Verify parses and validates an ID token, returning the normalized profile.
// All failures collapse into ErrInvalidIDToken.
func (v *JWKSVerifier) Verify(_ context.Context, _ domain.Provider, idToken string) (*Profile, error) {
	token, err := v.parser.Parse(idToken, v.keyfunc.Keyfunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidIDToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidIDToken
	}

	sub := readString(claims, "sub")
	email := readString(claims, "email")
	if sub == "" || email == "" {
		return nil, ErrInvalidIDToken
	}

	return &Profile{
		ProviderUserID: sub,
		Email:          strings.ToLower(email),
		EmailVerified:  readBool(claims, "email_verified"),
		Name:           readString(claims, "name"),
		AvatarURL:      readString(claims, "picture"),
	}, nil
}

func readString(claims jwt.MapClaims, key string) string {
	if s, ok := claims[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func readBool(claims jwt.MapClaims, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		// Apple serializes email_verified as the string "true".
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
