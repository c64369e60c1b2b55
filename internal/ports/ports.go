// Package ports defines the interfaces between the gate core and its
// adapters. The application depends on these abstractions so tests can
// construct isolated instances; concrete implementations live in the
// infrastructure layer.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/filegate/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.filegate/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// PathPolicy classifies filesystem paths against the configured rules.
type PathPolicy interface {
	// Classify resolves the path to canonical form and checks it for the
	// given operation. The returned decision reports allowance, reason
	// codes, and the sensitivity flag.
	Classify(path string, op domain.OperationKind, mustExist bool) (domain.PathDecision, error)
	// ClassifyAll validates a batch atomically: if any path is refused,
	// it returns a BatchValidationError carrying every per-path reason
	// and no decisions.
	ClassifyAll(paths []string, op domain.OperationKind, mustExist bool) ([]domain.PathDecision, error)
}

// RiskAssessor scores an operation request. The result is deterministic
// given the same arguments and filesystem state at call time.
type RiskAssessor interface {
	Assess(op domain.OperationKind, paths []string, params domain.OperationParams) domain.RiskAssessment
}

// AuditRecorder is the append-only write path of the audit trail. Record
// must not fail the caller when the backing store is unavailable: the gate
// decision never depends on audit-write success.
type AuditRecorder interface {
	Record(ctx context.Context, event domain.AuditEvent) (auditID string, degraded bool)
}

// AuditQuerier is the read surface over the audit trail.
type AuditQuerier interface {
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	ByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error)
	ByTimeframe(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error)
	HighRisk(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error)
	Failed(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error)
	Statistics(ctx context.Context, userID string, since time.Time) (domain.AuditStats, error)
}

// BackupService snapshots path contents before risky mutations.
type BackupService interface {
	Create(ctx context.Context, paths []string, op domain.OperationKind, userID string) (domain.BackupRecord, error)
	Restore(ctx context.Context, backupID string) error
	List(userID string, since time.Time) ([]domain.BackupRecord, error)
	Delete(backupID string) error
	StorageInfo() domain.BackupStorageInfo
	Prune() error
}

// SnapshotService records reversal mappings and performs rollbacks.
type SnapshotService interface {
	Create(op domain.OperationKind, fileStates map[string]string, foldersCreated []string, metadata map[string]string) (domain.Snapshot, error)
	Load(snapshotID string) (domain.Snapshot, error)
	List() ([]domain.Snapshot, error)
	Rollback(snapshotID string) (domain.RollbackResult, error)
	CleanupExpired() (int, error)
}

// Logger provides structured logging for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
