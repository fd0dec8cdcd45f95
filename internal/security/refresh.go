package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RefreshSeparator joins the session id and the random component in the raw
// refresh secret. The session id must be recoverable by splitting on the
// first occurrence, so neither part may contain it: the id is a uuid and the
// random component is base64url.
const RefreshSeparator = "."

// ErrMalformedRefreshSecret is returned when a raw refresh secret does not
// carry a session id prefix.
var ErrMalformedRefreshSecret = errors.New("malformed refresh secret")

// refreshEntropyBytes is the random-component size of a refresh secret.
const refreshEntropyBytes = 32

// NewRefreshSecret generates a fresh session id (jti) and the raw refresh
// secret `<jti>.<random>`. The raw form is the only one ever sent to the
// client; callers store DigestRefreshSecret(raw) instead.
func NewRefreshSecret() (raw, jti string, err error) {
	jti = uuid.New().String()
	buf := make([]byte, refreshEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = jti + RefreshSeparator + base64.RawURLEncoding.EncodeToString(buf)
	return raw, jti, nil
}

// ParseRefreshSessionID extracts the session id from a raw refresh secret
// without any storage lookup. Returns ErrMalformedRefreshSecret when the
// separator or either part is missing.
func ParseRefreshSessionID(raw string) (string, error) {
	jti, rest, ok := strings.Cut(raw, RefreshSeparator)
	if !ok || jti == "" || rest == "" {
		return "", ErrMalformedRefreshSecret
	}
	return jti, nil
}

// DigestRefreshSecret produces the storage form of a refresh secret:
// SHA-256 of the raw value, then bcrypt with a per-value salt. The SHA-256
// step keeps the input under bcrypt's 72-byte limit; bcrypt supplies the
// brute-force work factor. Never reversible.
func DigestRefreshSecret(raw string, cost int) (string, error) {
	sum := sha256.Sum256([]byte(raw))
	b, err := bcrypt.GenerateFromPassword(sum[:], cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyRefreshSecret compares a raw refresh secret against a stored digest.
// Returns false, never an error, on malformed input.
func VerifyRefreshSecret(raw, storedDigest string) bool {
	if raw == "" || storedDigest == "" {
		return false
	}
	sum := sha256.Sum256([]byte(raw))
	return bcrypt.CompareHashAndPassword([]byte(storedDigest), sum[:]) == nil
}
