package domain

import "time"

// AuditLog is one append-only audit event.
type AuditLog struct {
	ID        int64
	UserID    string // empty when the event has no resolved user
	Action    string
	Entity    string
	EntityID  string
	Metadata  string // JSON blob; empty when none
	CreatedAt time.Time
}

// Actions recorded by the auth core.
const (
	ActionLogin          = "LOGIN"
	ActionRefreshRotated = "REFRESH_ROTATED"
	ActionReplayDetected = "REPLAY_DETECTED"
	ActionLogout         = "LOGOUT"
)
