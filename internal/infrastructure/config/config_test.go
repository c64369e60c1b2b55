package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/filegate/internal/domain"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("first-run config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadHydratesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "config_format_version: \"1\"\nconfirmation:\n  timeout_seconds: 60\n"
	if err := os.WriteFile(path, []byte(partial), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewFileLoader(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Confirmation.TimeoutSeconds != 60 {
		t.Fatalf("explicit value lost: %+v", cfg.Confirmation)
	}
	if cfg.Risk.HighFileCount != domain.DefaultRiskHighFileCount {
		t.Fatalf("risk defaults not hydrated: %+v", cfg.Risk)
	}
	if cfg.Backup.Directory == "" || cfg.Audit.Directory == "" {
		t.Fatalf("directories not hydrated: %+v", cfg)
	}
	if cfg.Resilience.BreakerThreshold != domain.DefaultBreakerThreshold {
		t.Fatalf("resilience defaults not hydrated: %+v", cfg.Resilience)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Limits.MaxBatchSize = 42
	if err := loader.Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(cfg, reloaded); diff != "" {
		t.Fatalf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestEnvOverridePath(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv("FILEGATE_CONFIG", custom)

	loader := NewFileLoader("")
	if got := loader.Path(); got != custom {
		t.Fatalf("Path = %q, want %q", got, custom)
	}
}
