package domain

import "time"

// BackupEntryType distinguishes copied files from copied directory trees.
type BackupEntryType string

const (
	BackupEntryFile      BackupEntryType = "file"
	BackupEntryDirectory BackupEntryType = "directory"
)

// BackupEntry maps one original path to its content copy inside the backup
// root. The copy survives the original being deleted.
type BackupEntry struct {
	Original       string          `json:"original"`
	BackupLocation string          `json:"backup"`
	Type           BackupEntryType `json:"type"`
}

// BackupRecord is the metadata index entry for one backup.
type BackupRecord struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Operation OperationKind `json:"operation"`
	UserID    string        `json:"user_id"`
	Entries   []BackupEntry `json:"paths"`
	TotalSize int64         `json:"total_size"`
	FileCount int           `json:"file_count"`
}

// BackupStorageInfo summarises aggregate backup usage against the cap.
type BackupStorageInfo struct {
	BackupCount  int     `json:"backup_count"`
	TotalFiles   int     `json:"total_files"`
	TotalSize    int64   `json:"total_size_bytes"`
	StorageCap   int64   `json:"storage_cap_bytes"`
	UsagePercent float64 `json:"usage_percent"`
}
