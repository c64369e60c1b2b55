package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/filegate/assets"
	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/filesystem"
	"github.com/doeshing/filegate/internal/ports"
)

// FileLoader loads YAML configuration from ~/.filegate/config.yaml
// (overridable via FILEGATE_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := defaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}

	return hydrateDefaults(cfg), nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Save writes the given config back to disk.
func (l *FileLoader) Save(cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := ensureConfigDir(l.resolvePath()); err != nil {
		return err
	}
	return os.WriteFile(l.resolvePath(), raw, domain.SecureFilePermissions)
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return l.overridePath
	}
	if custom := os.Getenv("FILEGATE_CONFIG"); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHomeDir(), ".filegate", "config.yaml")
}

func ensureConfigDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, domain.DirectoryPermissions)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

func defaultConfig() domain.Config {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		// Fallback to a minimal config if the embedded YAML is corrupted.
		return hydrateDefaults(domain.Config{ConfigFormatVersion: "1"})
	}
	return hydrateDefaults(cfg)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	home := filesystem.UserHomeDir()
	if cfg.Policy.RulesFile == "" {
		cfg.Policy.RulesFile = filepath.Join(home, ".filegate", "policy.yaml")
	} else {
		cfg.Policy.RulesFile = filesystem.ExpandPath(cfg.Policy.RulesFile)
	}

	if cfg.Risk.LowFileCount == 0 {
		cfg.Risk.LowFileCount = domain.DefaultRiskLowFileCount
	}
	if cfg.Risk.MediumFileCount == 0 {
		cfg.Risk.MediumFileCount = domain.DefaultRiskMediumFileCount
	}
	if cfg.Risk.HighFileCount == 0 {
		cfg.Risk.HighFileCount = domain.DefaultRiskHighFileCount
	}
	if cfg.Risk.LowSizeBytes == 0 {
		cfg.Risk.LowSizeBytes = domain.DefaultRiskLowSize
	}
	if cfg.Risk.MediumSizeBytes == 0 {
		cfg.Risk.MediumSizeBytes = domain.DefaultRiskMediumSize
	}
	if cfg.Risk.HighSizeBytes == 0 {
		cfg.Risk.HighSizeBytes = domain.DefaultRiskHighSize
	}

	if cfg.Confirmation.TimeoutSeconds <= 0 {
		cfg.Confirmation.TimeoutSeconds = int(domain.DefaultConfirmationTimeout.Seconds())
	}

	if cfg.Backup.Directory == "" {
		cfg.Backup.Directory = filepath.Join(home, ".filegate", "backups")
	} else {
		cfg.Backup.Directory = filesystem.ExpandPath(cfg.Backup.Directory)
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = domain.DefaultBackupRetentionDays
	}
	if cfg.Backup.StorageCapBytes <= 0 {
		cfg.Backup.StorageCapBytes = domain.DefaultBackupStorageCap
	}

	if cfg.Snapshot.Directory == "" {
		cfg.Snapshot.Directory = filepath.Join(home, ".filegate", "snapshots")
	} else {
		cfg.Snapshot.Directory = filesystem.ExpandPath(cfg.Snapshot.Directory)
	}
	if cfg.Snapshot.RetentionHours <= 0 {
		cfg.Snapshot.RetentionHours = int(domain.DefaultSnapshotRetention.Hours())
	}

	if cfg.Audit.Directory == "" {
		cfg.Audit.Directory = filepath.Join(home, ".filegate", "audit")
	} else {
		cfg.Audit.Directory = filesystem.ExpandPath(cfg.Audit.Directory)
	}
	if cfg.Audit.RetentionDays <= 0 {
		cfg.Audit.RetentionDays = domain.DefaultAuditRetentionDays
	}

	if cfg.Resilience.BreakerThreshold <= 0 {
		cfg.Resilience.BreakerThreshold = domain.DefaultBreakerThreshold
	}
	if cfg.Resilience.BreakerRecoverySeconds <= 0 {
		cfg.Resilience.BreakerRecoverySeconds = int(domain.DefaultBreakerRecovery.Seconds())
	}
	if cfg.Resilience.RetryMaxAttempts <= 0 {
		cfg.Resilience.RetryMaxAttempts = domain.DefaultRetryMaxAttempts
	}
	if cfg.Resilience.RetryDelaySeconds <= 0 {
		cfg.Resilience.RetryDelaySeconds = domain.DefaultRetryDelay.Seconds()
	}
	if cfg.Resilience.RetryBackoff <= 0 {
		cfg.Resilience.RetryBackoff = domain.DefaultRetryBackoff
	}
	if cfg.Resilience.RatePerMinute <= 0 {
		cfg.Resilience.RatePerMinute = domain.DefaultRatePerMinute
	}
	if cfg.Resilience.RateBurst <= 0 {
		cfg.Resilience.RateBurst = domain.DefaultRateBurst
	}

	if cfg.Limits.MaxBatchSize <= 0 {
		cfg.Limits.MaxBatchSize = domain.DefaultMaxBatchSize
	}
	if cfg.Limits.MaxBatchTotalSize <= 0 {
		cfg.Limits.MaxBatchTotalSize = domain.DefaultMaxBatchTotalSize
	}
	if cfg.Limits.MaxRecursionDepth <= 0 {
		cfg.Limits.MaxRecursionDepth = domain.DefaultMaxRecursionDepth
	}

	return cfg
}

// DefaultConfig exposes the bootstrap configuration template.
func DefaultConfig() domain.Config {
	return defaultConfig()
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
