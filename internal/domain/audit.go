package domain

import "time"

// AuditStatus labels one lifecycle transition of a gated operation.
type AuditStatus string

const (
	AuditBlocked      AuditStatus = "blocked"
	AuditPending      AuditStatus = "pending"
	AuditAutoApproved AuditStatus = "auto_approved"
	AuditConfirmed    AuditStatus = "confirmed"
	AuditDeclined     AuditStatus = "declined"
	AuditCancelled    AuditStatus = "cancelled"
	AuditTimedOut     AuditStatus = "timeout"
	AuditExecuted     AuditStatus = "executed"
	AuditFailed       AuditStatus = "failed"
	AuditUndone       AuditStatus = "undone"
)

// Terminal reports whether the status ends an operation's lifecycle.
func (s AuditStatus) Terminal() bool {
	switch s {
	case AuditPending:
		return false
	default:
		return true
	}
}

// AuditEvent is the write-side payload handed to the audit logger.
type AuditEvent struct {
	UserID     string
	Operation  OperationKind
	RiskLevel  RiskLevel
	Status     AuditStatus
	Paths      []string
	FileCount  int
	TotalSize  int64
	Details    map[string]string
	SnapshotID string
	Error      string
}

// AuditEntry is the stored, append-only record. It is the single source of
// truth for what happened and must remain derivable even if confirmation,
// snapshot, or backup state is lost.
type AuditEntry struct {
	AuditID    string            `json:"audit_id"`
	Timestamp  time.Time         `json:"timestamp"`
	UserID     string            `json:"user_id"`
	Operation  OperationKind     `json:"operation"`
	RiskLevel  RiskLevel         `json:"risk_level"`
	Status     AuditStatus       `json:"status"`
	Paths      []string          `json:"paths"`
	FileCount  int               `json:"file_count"`
	TotalSize  int64             `json:"total_size"`
	Success    bool              `json:"success"`
	Details    map[string]string `json:"details,omitempty"`
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// AuditStats aggregates the trail over a window.
type AuditStats struct {
	TotalOperations      int               `json:"total_operations"`
	SuccessfulOperations int               `json:"successful_operations"`
	SuccessRate          float64           `json:"success_rate"`
	RiskDistribution     map[string]int    `json:"risk_distribution"`
	TopOperations        map[string]int    `json:"top_operations"`
	TotalFilesProcessed  int64             `json:"total_files_processed"`
	TotalSizeBytes       int64             `json:"total_size_bytes"`
	Since                time.Time         `json:"since"`
}
