// Package app builds the dependency graph. All wiring is explicit; nothing
// in the tree reaches for a package-level singleton.
package app

import (
	"context"
	"time"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/infrastructure/audit"
	"github.com/doeshing/filegate/internal/infrastructure/backup"
	"github.com/doeshing/filegate/internal/infrastructure/config"
	"github.com/doeshing/filegate/internal/infrastructure/policy"
	"github.com/doeshing/filegate/internal/infrastructure/resilience"
	"github.com/doeshing/filegate/internal/infrastructure/risk"
	"github.com/doeshing/filegate/internal/infrastructure/snapshot"
	"github.com/doeshing/filegate/internal/pkg/logger"
	"github.com/doeshing/filegate/internal/ports"
	"github.com/doeshing/filegate/internal/services"
)

// Container holds the wired application services.
type Container struct {
	Config       domain.Config
	Rules        domain.PolicyRules
	ConfigLoader *config.FileLoader
	Gate         *services.GateService
	Policy       ports.PathPolicy
	Risk         ports.RiskAssessor
	Audit        *audit.Logger
	Backups      ports.BackupService
	Snapshots    ports.SnapshotService
	Logger       ports.Logger
}

// BuildContainer constructs the dependency graph from configuration.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New(verbose)

	validator, err := policy.NewValidator(cfg.Policy.RulesFile)
	if err != nil {
		return nil, err
	}

	rules, err := policy.LoadRules(cfg.Policy.RulesFile)
	if err != nil {
		return nil, err
	}
	assessor := risk.NewAssessor(cfg.Risk, rules, cfg.Backup.Enabled, log)

	auditStore, err := audit.NewSQLiteStore(cfg.Audit.Directory)
	if err != nil {
		return nil, err
	}
	mirror, err := audit.NewMirror(cfg.Audit.Directory)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewBreaker("audit store",
		cfg.Resilience.BreakerThreshold,
		time.Duration(cfg.Resilience.BreakerRecoverySeconds)*time.Second)
	auditLogger := audit.NewLogger(auditStore, mirror, breaker,
		resilience.PolicyFromSettings(cfg.Resilience), log)

	var backups ports.BackupService
	if cfg.Backup.Enabled {
		manager, err := backup.NewManager(cfg.Backup, log)
		if err != nil {
			return nil, err
		}
		backups = manager
	}

	snapshots, err := snapshot.NewManager(cfg.Snapshot, log)
	if err != nil {
		return nil, err
	}

	limiter := resilience.NewLimiter(cfg.Resilience.RatePerMinute, cfg.Resilience.RateBurst)
	gate := services.NewGateService(
		validator,
		assessor,
		auditLogger,
		backups,
		limiter,
		time.Duration(cfg.Confirmation.TimeoutSeconds)*time.Second,
		cfg.Limits,
		log,
	)

	return &Container{
		Config:       cfg,
		Rules:        rules,
		ConfigLoader: cfgLoader,
		Gate:         gate,
		Policy:       validator,
		Risk:         assessor,
		Audit:        auditLogger,
		Backups:      backups,
		Snapshots:    snapshots,
		Logger:       log,
	}, nil
}
