package domain

// Config mirrors ~/.filegate/config.yaml.
type Config struct {
	ConfigFormatVersion string             `yaml:"config_format_version"`
	Policy              PolicySettings     `yaml:"policy"`
	Risk                RiskSettings       `yaml:"risk"`
	Confirmation        ConfirmSettings    `yaml:"confirmation"`
	Backup              BackupSettings     `yaml:"backup"`
	Snapshot            SnapshotSettings   `yaml:"snapshot"`
	Audit               AuditSettings      `yaml:"audit"`
	Resilience          ResilienceSettings `yaml:"resilience"`
	Limits              LimitSettings      `yaml:"limits"`
}

// PolicySettings locates the path policy rules document.
type PolicySettings struct {
	RulesFile string `yaml:"rules_file"`
}

// RiskSettings holds the additive-scoring thresholds.
type RiskSettings struct {
	LowFileCount    int   `yaml:"low_file_count"`
	MediumFileCount int   `yaml:"medium_file_count"`
	HighFileCount   int   `yaml:"high_file_count"`
	LowSizeBytes    int64 `yaml:"low_size_bytes"`
	MediumSizeBytes int64 `yaml:"medium_size_bytes"`
	HighSizeBytes   int64 `yaml:"high_size_bytes"`
}

// ConfirmSettings controls the pending-challenge lifecycle.
type ConfirmSettings struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// BackupSettings controls automatic content backups.
type BackupSettings struct {
	Enabled         bool   `yaml:"enabled"`
	Directory       string `yaml:"directory"`
	RetentionDays   int    `yaml:"retention_days"`
	StorageCapBytes int64  `yaml:"storage_cap_bytes"`
}

// SnapshotSettings controls reversal snapshots.
type SnapshotSettings struct {
	Directory      string `yaml:"directory"`
	RetentionHours int    `yaml:"retention_hours"`
}

// AuditSettings controls the audit trail stores.
type AuditSettings struct {
	Directory     string `yaml:"directory"`
	RetentionDays int    `yaml:"retention_days"`
}

// ResilienceSettings configures the breaker, retry, and rate limiter used
// around unreliable dependencies.
type ResilienceSettings struct {
	BreakerThreshold       int     `yaml:"breaker_threshold"`
	BreakerRecoverySeconds int     `yaml:"breaker_recovery_seconds"`
	RetryMaxAttempts       int     `yaml:"retry_max_attempts"`
	RetryDelaySeconds      float64 `yaml:"retry_delay_seconds"`
	RetryBackoff           float64 `yaml:"retry_backoff"`
	RatePerMinute          int     `yaml:"rate_per_minute"`
	RateBurst              int     `yaml:"rate_burst"`
}

// LimitSettings bounds a single gated operation.
type LimitSettings struct {
	MaxBatchSize      int   `yaml:"max_batch_size"`
	MaxBatchTotalSize int64 `yaml:"max_batch_total_size"`
	MaxRecursionDepth int   `yaml:"max_recursion_depth"`
}
