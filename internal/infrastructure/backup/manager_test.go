package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/logger"
)

func testManager(t *testing.T, cap int64) *Manager {
	t.Helper()
	m, err := NewManager(domain.BackupSettings{
		Enabled:         true,
		Directory:       t.TempDir(),
		RetentionDays:   30,
		StorageCapBytes: cap,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCreateBackupCopiesContent(t *testing.T) {
	m := testManager(t, 0)
	work := t.TempDir()
	file := writeFile(t, filepath.Join(work, "doc.txt"), "hello")
	dir := filepath.Join(work, "photos")
	writeFile(t, filepath.Join(dir, "a.jpg"), "aaa")
	writeFile(t, filepath.Join(dir, "b.jpg"), "bbb")

	record, err := m.Create(context.Background(), []string{file, dir}, domain.OpDeleteFiles, "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(record.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(record.Entries))
	}
	if record.FileCount != 3 {
		t.Fatalf("file count = %d, want 3", record.FileCount)
	}
	for _, entry := range record.Entries {
		if _, err := os.Stat(entry.BackupLocation); err != nil {
			t.Fatalf("backup copy missing for %s: %v", entry.Original, err)
		}
	}
}

func TestCreateSkipsMissingPaths(t *testing.T) {
	m := testManager(t, 0)
	work := t.TempDir()
	file := writeFile(t, filepath.Join(work, "real.txt"), "x")

	record, err := m.Create(context.Background(),
		[]string{file, filepath.Join(work, "ghost.txt")}, domain.OpDeleteFiles, "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(record.Entries) != 1 {
		t.Fatalf("entries = %d, want 1 (missing path skipped)", len(record.Entries))
	}
}

func TestCreateFailsWhenNothingCopyable(t *testing.T) {
	m := testManager(t, 0)
	if _, err := m.Create(context.Background(),
		[]string{filepath.Join(t.TempDir(), "ghost.txt")}, domain.OpDeleteFiles, "alice"); err == nil {
		t.Fatal("expected error when no path could be copied")
	}
}

func TestRestoreAfterDelete(t *testing.T) {
	m := testManager(t, 0)
	work := t.TempDir()
	file := writeFile(t, filepath.Join(work, "doc.txt"), "precious")

	record, err := m.Create(context.Background(), []string{file}, domain.OpDeleteFiles, "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.Remove(file); err != nil {
		t.Fatal(err)
	}

	if err := m.Restore(context.Background(), record.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("restored file missing: %v", err)
	}
	if string(data) != "precious" {
		t.Fatalf("restored content = %q", data)
	}
}

func TestRestoreUnknownBackup(t *testing.T) {
	m := testManager(t, 0)
	if err := m.Restore(context.Background(), "backup_nope"); !errors.Is(err, domain.ErrBackupNotFound) {
		t.Fatalf("err = %v, want ErrBackupNotFound", err)
	}
}

func TestCapEvictionRemovesOldestFirst(t *testing.T) {
	m := testManager(t, 40)
	work := t.TempDir()

	base := time.Now().Add(-time.Hour)
	ids := make([]string, 0, 3)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		offset := time.Duration(i) * time.Minute
		m.now = func() time.Time { return base.Add(offset) }
		file := writeFile(t, filepath.Join(work, name), "0123456789012345678901234") // 25 bytes
		record, err := m.Create(context.Background(), []string{file}, domain.OpDeleteFiles, "alice")
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
		ids = append(ids, record.ID)
	}

	records, err := m.List("", time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) >= 3 {
		t.Fatalf("cap eviction did not run, %d records remain", len(records))
	}
	for _, rec := range records {
		if rec.ID == ids[0] {
			t.Fatal("oldest backup should have been evicted first")
		}
	}
}

func TestAgeEviction(t *testing.T) {
	m := testManager(t, 0)
	work := t.TempDir()
	file := writeFile(t, filepath.Join(work, "old.txt"), "x")

	m.now = func() time.Time { return time.Now().AddDate(0, 0, -60) }
	if _, err := m.Create(context.Background(), []string{file}, domain.OpDeleteFiles, "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.now = time.Now
	if err := m.Prune(); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	records, err := m.List("", time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("aged backup not evicted, %d remain", len(records))
	}
}

func TestStorageInfo(t *testing.T) {
	m := testManager(t, 1000)
	work := t.TempDir()
	file := writeFile(t, filepath.Join(work, "doc.txt"), "0123456789")

	if _, err := m.Create(context.Background(), []string{file}, domain.OpDeleteFiles, "alice"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	info := m.StorageInfo()
	if info.BackupCount != 1 || info.TotalFiles != 1 {
		t.Fatalf("info = %+v", info)
	}
	if info.TotalSize != 10 {
		t.Fatalf("total size = %d, want 10", info.TotalSize)
	}
	if info.UsagePercent != 1.0 {
		t.Fatalf("usage = %.2f, want 1.00", info.UsagePercent)
	}
}

func TestMetadataSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	settings := domain.BackupSettings{Enabled: true, Directory: dir, RetentionDays: 30}
	m, err := NewManager(settings, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	file := writeFile(t, filepath.Join(t.TempDir(), "doc.txt"), "x")
	record, err := m.Create(context.Background(), []string{file}, domain.OpDeleteFiles, "alice")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reloaded, err := NewManager(settings, logger.Nop())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	records, err := reloaded.List("alice", time.Time{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].ID != record.ID {
		t.Fatalf("records = %+v", records)
	}
}
