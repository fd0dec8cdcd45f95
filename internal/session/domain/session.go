package domain

import "time"

// Session is the storage record backing one refresh secret. Rotation creates
// a new session whose ParentJTI is the rotated-out session's JTI, forming an
// append-only chain rooted at the original login. Sessions are revoked, never
// deleted.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string  // one-way digest; the raw secret is never stored
	JTI              string  // globally unique session identifier
	ParentJTI        *string // nil for login-created sessions
	ExpiresAt        time.Time
	UserAgent        string
	IP               string
	RevokedAt        *time.Time // nil when not revoked
	CreatedAt        time.Time
}

// Active reports whether the session is usable at the given instant:
// not revoked and not past its expiry.
func (s *Session) Active(at time.Time) bool {
	return s.RevokedAt == nil && at.Before(s.ExpiresAt)
}
