package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessClaims holds JWT claims for the access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Plan string `json:"plan"`
}

// TokenProvider issues and validates access JWTs. It signs with HS256 when
// constructed from a shared secret, or RS256/ES256 when constructed from a
// key pair. Misconfiguration (no key material) fails at construction, never
// at issue time.
type TokenProvider struct {
	secret     []byte
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	accessTTL  time.Duration
}

// NewHMACTokenProvider returns a TokenProvider signing with HS256 and the given secret.
func NewHMACTokenProvider(secret []byte, issuer string, accessTTL time.Duration) (*TokenProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("security: empty HMAC secret")
	}
	return &TokenProvider{secret: secret, issuer: issuer, accessTTL: accessTTL}, nil
}

// NewTokenProvider returns a TokenProvider signing with the given private key (RS256 or ES256).
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string, accessTTL time.Duration) (*TokenProvider, error) {
	if privateKey == nil || publicKey == nil {
		return nil, errors.New("security: nil signing key")
	}
	if KeyAlg(publicKey) == "" {
		return nil, ErrInvalidKey
	}
	return &TokenProvider{privateKey: privateKey, publicKey: publicKey, issuer: issuer, accessTTL: accessTTL}, nil
}

// AccessTTLSeconds returns the configured access token lifetime in whole seconds.
func (p *TokenProvider) AccessTTLSeconds() int {
	return int(p.accessTTL / time.Second)
}

// IssueAccess issues a short-lived access JWT for the given user carrying
// role and plan tags plus a fresh jti. Returns the signed token and its
// lifetime in seconds.
func (p *TokenProvider) IssueAccess(userID, role, plan string) (token string, expiresIn int, err error) {
	now := time.Now().UTC()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.accessTTL)),
		},
		Role: role,
		Plan: plan,
	}
	token, err = p.sign(claims)
	if err != nil {
		return "", 0, err
	}
	return token, p.AccessTTLSeconds(), nil
}

func (p *TokenProvider) sign(claims jwt.Claims) (string, error) {
	if p.secret != nil {
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	return jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
}

// ValidateAccess parses and validates the access token (signature, exp, iss).
// Returns the claims or ErrInvalidToken; expiry and signature failures are
// not distinguished to the caller.
func (p *TokenProvider) ValidateAccess(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if p.secret != nil {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
				return p.secret, nil
			}
			return nil, ErrInvalidToken
		}
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != p.issuer {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
