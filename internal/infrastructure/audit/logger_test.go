package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/infrastructure/resilience"
	"github.com/doeshing/filegate/internal/pkg/logger"
)

func testLogger(t *testing.T) (*Logger, *SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	mirror, err := NewMirror(dir)
	if err != nil {
		t.Fatalf("NewMirror: %v", err)
	}
	breaker := resilience.NewBreaker("audit store", 5, time.Minute)
	retry := resilience.Policy{MaxAttempts: 2, Delay: time.Millisecond, Backoff: 2}
	return NewLogger(store, mirror, breaker, retry, logger.Nop()), store, dir
}

func sampleEvent(status domain.AuditStatus) domain.AuditEvent {
	return domain.AuditEvent{
		UserID:    "alice",
		Operation: domain.OpDeleteFiles,
		RiskLevel: domain.RiskHigh,
		Status:    status,
		Paths:     []string{"/home/alice/Documents/old.txt"},
		FileCount: 1,
		TotalSize: 512,
	}
}

func TestRecordAndQueryRoundTrip(t *testing.T) {
	l, _, _ := testLogger(t)
	ctx := context.Background()

	auditID, degraded := l.Record(ctx, sampleEvent(domain.AuditExecuted))
	if auditID == "" || degraded {
		t.Fatalf("Record = (%q, %v)", auditID, degraded)
	}

	entries, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	got := entries[0]
	if got.AuditID != auditID || got.Operation != domain.OpDeleteFiles || !got.Success {
		t.Fatalf("entry = %+v", got)
	}
	if len(got.Paths) != 1 || got.Paths[0] != "/home/alice/Documents/old.txt" {
		t.Fatalf("paths = %v", got.Paths)
	}
}

func TestQueriesFilter(t *testing.T) {
	l, _, _ := testLogger(t)
	ctx := context.Background()

	l.Record(ctx, sampleEvent(domain.AuditExecuted))
	l.Record(ctx, sampleEvent(domain.AuditFailed))
	low := sampleEvent(domain.AuditAutoApproved)
	low.RiskLevel = domain.RiskSafe
	low.UserID = "bob"
	l.Record(ctx, low)

	since := time.Now().Add(-time.Hour)
	high, err := l.HighRisk(ctx, since, 0)
	if err != nil {
		t.Fatalf("HighRisk: %v", err)
	}
	if len(high) != 2 {
		t.Fatalf("high risk entries = %d, want 2", len(high))
	}

	failed, err := l.Failed(ctx, since, 0)
	if err != nil {
		t.Fatalf("Failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Status != domain.AuditFailed {
		t.Fatalf("failed = %+v", failed)
	}

	bob, err := l.ByUser(ctx, "bob", 10, 0)
	if err != nil {
		t.Fatalf("ByUser: %v", err)
	}
	if len(bob) != 1 || bob[0].UserID != "bob" {
		t.Fatalf("bob = %+v", bob)
	}
}

func TestStatisticsAggregates(t *testing.T) {
	l, _, _ := testLogger(t)
	ctx := context.Background()

	l.Record(ctx, sampleEvent(domain.AuditExecuted))
	l.Record(ctx, sampleEvent(domain.AuditExecuted))
	l.Record(ctx, sampleEvent(domain.AuditFailed))

	stats, err := l.Statistics(ctx, "alice", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalOperations != 3 || stats.SuccessfulOperations != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.RiskDistribution[string(domain.RiskHigh)] != 3 {
		t.Fatalf("risk distribution = %v", stats.RiskDistribution)
	}
	if stats.TopOperations[string(domain.OpDeleteFiles)] != 3 {
		t.Fatalf("top operations = %v", stats.TopOperations)
	}
	if stats.TotalFilesProcessed != 3 || stats.TotalSizeBytes != 1536 {
		t.Fatalf("totals = %+v", stats)
	}
}

func TestRecordDegradesWhenStoreFails(t *testing.T) {
	l, store, dir := testLogger(t)
	ctx := context.Background()

	// Closing the database forces the insert path to fail. Record must
	// still return an id and keep the mirror line.
	store.Close()
	auditID, degraded := l.Record(ctx, sampleEvent(domain.AuditPending))
	if auditID == "" {
		t.Fatal("Record must return an id even when the store is down")
	}
	if !degraded {
		t.Fatal("expected degraded flag")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, ent := range entries {
		if strings.HasPrefix(ent.Name(), "audit_") && strings.HasSuffix(ent.Name(), ".jsonl") {
			found = true
		}
	}
	if !found {
		t.Fatal("mirror file missing after database failure")
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	l, _, _ := testLogger(t)
	ctx := context.Background()

	l.now = func() time.Time { return time.Now().AddDate(0, 0, -120) }
	l.Record(ctx, sampleEvent(domain.AuditExecuted))
	l.now = time.Now
	l.Record(ctx, sampleEvent(domain.AuditExecuted))

	removed, err := l.Prune(ctx, 90)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	entries, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestExportJSON(t *testing.T) {
	l, _, _ := testLogger(t)
	ctx := context.Background()
	l.Record(ctx, sampleEvent(domain.AuditExecuted))

	dest := filepath.Join(t.TempDir(), "trail.jsonl")
	if err := l.ExportJSON(ctx, dest); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), string(domain.OpDeleteFiles)) {
		t.Fatalf("export missing operation: %s", data)
	}
}
