// Package audit writes append-only audit events for auth operations.
package audit

import (
	"context"
	"log"
	"time"

	"legalrisk/backend/internal/audit/domain"
	auditrepo "legalrisk/backend/internal/audit/repository"
)

// Logger writes a single audit event per auth operation. Best-effort: write
// failures are logged and never affect the calling operation.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns a Logger persisting to repo. repo may be nil; then all
// events are dropped.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, entity, entityID, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to write %s event: %v", action, err)
	}
}
