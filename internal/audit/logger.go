package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"veo-auth-service/internal/audit/domain"
	auditrepo "veo-auth-service/internal/audit/repository"
)

// SentinelInstanceID is the instance_id used for audit events that have no tenant
// (e.g. registration, failed magic-link consumption).
const SentinelInstanceID = "_system"

// logTimeout bounds a single async audit write. ShutdownDrainDuration must be >= logTimeout.
const logTimeout = 5 * time.Second

// ShutdownDrainDuration is how long the server waits after stopping request intake
// so in-flight async audit writes have time to complete.
const ShutdownDrainDuration = logTimeout

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by auth and tenant code paths.
// Both methods are best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, instanceID, userID, action, resource, metadata string)
	LogEventAsync(ctx context.Context, instanceID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, instanceID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	l.write(ctx, l.entry(ctx, instanceID, userID, action, resource, metadata))
}

// LogEventAsync writes the entry in a goroutine so request handlers are not blocked.
// The goroutine uses context.Background() with logTimeout so request cancellation
// does not abort an in-flight write. The client IP is captured from ctx before
// the handoff because the request context may be invalid by write time.
func (l *Logger) LogEventAsync(ctx context.Context, instanceID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	entry := l.entry(ctx, instanceID, userID, action, resource, metadata)
	go func() {
		logCtx, cancel := context.WithTimeout(context.Background(), logTimeout)
		defer cancel()
		l.write(logCtx, entry)
	}()
}

func (l *Logger) entry(ctx context.Context, instanceID, userID, action, resource, metadata string) *domain.AuditLog {
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if instanceID == "" {
		instanceID = SentinelInstanceID
	}
	return &domain.AuditLog{
		ID:         uuid.New().String(),
		InstanceID: instanceID,
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		IP:         ip,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
}

func (l *Logger) write(ctx context.Context, entry *domain.AuditLog) {
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", entry.Action, entry.Resource, err)
	}
}
