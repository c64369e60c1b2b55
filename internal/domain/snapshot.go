package domain

import "time"

// Snapshot records the mapping needed to reverse a completed operation:
// where every touched file ended up versus where it was, plus any folders
// the operation created. Read-only after creation except for deletion on
// expiry or a fully successful rollback.
type Snapshot struct {
	SnapshotID string            `json:"snapshot_id"`
	Operation  OperationKind     `json:"operation_type"`
	FileStates map[string]string `json:"file_states"` // current path -> original path
	// FoldersCreated is kept in creation order; rollback walks it in
	// reverse so nested folders empty out before their parents.
	FoldersCreated []string          `json:"folders_created"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// Expired reports whether the snapshot is past its retention window.
// Expired snapshots refuse rollback.
func (s Snapshot) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// RollbackResult reports a rollback item by item. Partial restores are
// surfaced, never hidden behind a single error.
type RollbackResult struct {
	Success  bool     `json:"success"`
	Restored int      `json:"restored"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}
