// Package telemetry defines the auth event stream emitted to OTel Logs.
package telemetry

import (
	"context"
	"time"
)

// Event is one auth lifecycle event (login, refresh rotation, replay, logout).
type Event struct {
	UserID    string
	SessionID string
	EventType string
	Source    string
	Metadata  []byte // JSON
	CreatedAt time.Time
}

// Event types emitted by the auth service.
const (
	EventLogin          = "auth.login"
	EventRefreshRotated = "auth.refresh_rotated"
	EventReplayDetected = "auth.replay_detected"
	EventLogout         = "auth.logout"
)

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
