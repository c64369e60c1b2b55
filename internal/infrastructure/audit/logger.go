package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/infrastructure/resilience"
	"github.com/doeshing/filegate/internal/ports"
)

// Logger composes the SQLite store, the JSONL mirror, and the resilience
// wrappers into the audit ports. Record is intentionally infallible from
// the caller's perspective: a gate decision never waits on, or fails
// because of, the audit backend.
type Logger struct {
	store   *SQLiteStore
	mirror  *Mirror
	breaker *resilience.Breaker
	retry   resilience.Policy
	log     ports.Logger
	now     func() time.Time
}

// NewLogger wires the audit pipeline.
func NewLogger(store *SQLiteStore, mirror *Mirror, breaker *resilience.Breaker, retry resilience.Policy, log ports.Logger) *Logger {
	return &Logger{
		store:   store,
		mirror:  mirror,
		breaker: breaker,
		retry:   retry,
		log:     log,
		now:     time.Now,
	}
}

// Record implements ports.AuditRecorder. The entry is written to SQLite
// under the breaker and retry policy, and mirrored to JSONL regardless of
// the database outcome. degraded reports that at least one backend failed.
func (l *Logger) Record(ctx context.Context, event domain.AuditEvent) (string, bool) {
	entry := domain.AuditEntry{
		AuditID:    uuid.NewString(),
		Timestamp:  l.now().UTC(),
		UserID:     event.UserID,
		Operation:  event.Operation,
		RiskLevel:  event.RiskLevel,
		Status:     event.Status,
		Paths:      event.Paths,
		FileCount:  event.FileCount,
		TotalSize:  event.TotalSize,
		Success:    event.Status == domain.AuditExecuted || event.Status == domain.AuditAutoApproved,
		Details:    event.Details,
		SnapshotID: event.SnapshotID,
		Error:      event.Error,
	}

	degraded := false
	err := resilience.Retry(ctx, l.log, "audit store", l.retry, func() error {
		return l.breaker.Do(func() error {
			return l.store.Insert(ctx, entry)
		})
	})
	if err != nil {
		degraded = true
		l.log.Error("audit database write failed", err, map[string]interface{}{
			"audit_id": entry.AuditID,
			"status":   string(entry.Status),
		})
	}

	if mirrorErr := l.mirror.Append(entry); mirrorErr != nil {
		degraded = true
		l.log.Error("audit mirror write failed", mirrorErr, map[string]interface{}{
			"audit_id": entry.AuditID,
		})
	}
	return entry.AuditID, degraded
}

// Recent implements ports.AuditQuerier.
func (l *Logger) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return l.store.Recent(ctx, limit)
}

// ByUser implements ports.AuditQuerier.
func (l *Logger) ByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error) {
	return l.store.ByUser(ctx, userID, limit, offset)
}

// ByTimeframe implements ports.AuditQuerier.
func (l *Logger) ByTimeframe(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	return l.store.ByTimeframe(ctx, since, limit)
}

// HighRisk implements ports.AuditQuerier.
func (l *Logger) HighRisk(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	return l.store.HighRisk(ctx, since, limit)
}

// Failed implements ports.AuditQuerier.
func (l *Logger) Failed(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	return l.store.Failed(ctx, since, limit)
}

// Statistics implements ports.AuditQuerier.
func (l *Logger) Statistics(ctx context.Context, userID string, since time.Time) (domain.AuditStats, error) {
	return l.store.Statistics(ctx, userID, since)
}

// Prune removes database rows and mirror files older than the retention
// window.
func (l *Logger) Prune(ctx context.Context, retentionDays int) (int, error) {
	cutoff := l.now().AddDate(0, 0, -retentionDays)
	removed, err := l.store.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	if _, mirrorErr := l.mirror.PruneOlderThan(cutoff); mirrorErr != nil {
		l.log.Warn("audit mirror prune failed", map[string]interface{}{
			"error": mirrorErr.Error(),
		})
	}
	return removed, nil
}

// ExportJSON dumps the trail to a jsonl file.
func (l *Logger) ExportJSON(ctx context.Context, dest string) error {
	return l.store.ExportJSON(ctx, dest)
}

var (
	_ ports.AuditRecorder = (*Logger)(nil)
	_ ports.AuditQuerier  = (*Logger)(nil)
)
