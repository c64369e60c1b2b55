package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// FilePermissions is the default permission for data files (rw-r--r--)
	FilePermissions = 0o644
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Confirmation constants
const (
	// DefaultConfirmationTimeout bounds how long a challenge stays pending.
	DefaultConfirmationTimeout = 300 * time.Second
)

// Retention constants
const (
	// DefaultSnapshotRetention is how long a snapshot stays undoable.
	DefaultSnapshotRetention = 24 * time.Hour
	// DefaultBackupRetentionDays is the age-based backup eviction window.
	DefaultBackupRetentionDays = 30
	// DefaultAuditRetentionDays bounds the audit retention sweep.
	DefaultAuditRetentionDays = 90
	// DefaultBackupStorageCap is the aggregate backup storage cap.
	DefaultBackupStorageCap = 5 * 1024 * 1024 * 1024
)

// Risk threshold constants
const (
	DefaultRiskLowFileCount    = 10
	DefaultRiskMediumFileCount = 50
	DefaultRiskHighFileCount   = 200

	DefaultRiskLowSize    = 10 * 1024 * 1024
	DefaultRiskMediumSize = 100 * 1024 * 1024
	DefaultRiskHighSize   = 500 * 1024 * 1024
)

// Operation limit constants
const (
	DefaultMaxBatchSize      = 1000
	DefaultMaxBatchTotalSize = 1024 * 1024 * 1024
	DefaultMaxRecursionDepth = 10
)

// Resilience constants
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerRecovery  = 60 * time.Second
	DefaultRetryMaxAttempts = 3
	DefaultRetryDelay       = time.Second
	DefaultRetryBackoff     = 2.0
	DefaultRatePerMinute    = 30
	DefaultRateBurst        = 30
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
