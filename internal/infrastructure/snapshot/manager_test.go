package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/logger"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(domain.SnapshotSettings{
		Directory:      t.TempDir(),
		RetentionHours: 24,
	}, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	m := testManager(t)
	snap, err := m.Create(domain.OpOrganizeFolder,
		map[string]string{"/tmp/new/a.txt": "/tmp/old/a.txt"},
		[]string{"/tmp/new"},
		map[string]string{"note": "organized"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if snap.SnapshotID == "" {
		t.Fatal("empty snapshot id")
	}
	if !snap.ExpiresAt.After(snap.CreatedAt) {
		t.Fatalf("expiry %v not after creation %v", snap.ExpiresAt, snap.CreatedAt)
	}

	loaded, err := m.Load(snap.SnapshotID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.FileStates["/tmp/new/a.txt"] != "/tmp/old/a.txt" {
		t.Fatalf("file states lost: %+v", loaded.FileStates)
	}
	if loaded.Operation != domain.OpOrganizeFolder {
		t.Fatalf("operation = %s", loaded.Operation)
	}
}

func TestLoadUnknownSnapshot(t *testing.T) {
	m := testManager(t)
	if _, err := m.Load("missing"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestRollbackRestoresFilesAndFolders(t *testing.T) {
	m := testManager(t)
	work := t.TempDir()

	// Simulate an organize: a.txt was moved into sorted/.
	moved := filepath.Join(work, "sorted", "a.txt")
	original := filepath.Join(work, "a.txt")
	writeFile(t, moved, "contents")

	snap, err := m.Create(domain.OpOrganizeFolder,
		map[string]string{moved: original},
		[]string{filepath.Join(work, "sorted")}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := m.Rollback(snap.SnapshotID)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !result.Success || result.Restored != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(original); err != nil {
		t.Fatalf("original not restored: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "sorted")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("created folder should be removed, stat err = %v", err)
	}

	// A fully successful rollback consumes the snapshot.
	if _, err := m.Load(snap.SnapshotID); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("second load err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestRollbackKeepsNonEmptyFolders(t *testing.T) {
	m := testManager(t)
	work := t.TempDir()

	moved := filepath.Join(work, "sorted", "a.txt")
	writeFile(t, moved, "a")
	writeFile(t, filepath.Join(work, "sorted", "keep.txt"), "b")

	snap, err := m.Create(domain.OpOrganizeFolder,
		map[string]string{moved: filepath.Join(work, "a.txt")},
		[]string{filepath.Join(work, "sorted")}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Rollback(snap.SnapshotID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, err := os.Stat(filepath.Join(work, "sorted", "keep.txt")); err != nil {
		t.Fatalf("non-empty folder was removed: %v", err)
	}
}

func TestRollbackExpiredTouchesNothing(t *testing.T) {
	m := testManager(t)
	work := t.TempDir()
	moved := filepath.Join(work, "moved.txt")
	writeFile(t, moved, "x")

	snap, err := m.Create(domain.OpMoveFiles,
		map[string]string{moved: filepath.Join(work, "orig.txt")}, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := m.Rollback(snap.SnapshotID); !errors.Is(err, domain.ErrSnapshotExpired) {
		t.Fatalf("err = %v, want ErrSnapshotExpired", err)
	}
	if _, err := os.Stat(moved); err != nil {
		t.Fatalf("expired rollback must not move files: %v", err)
	}
}

func TestRollbackSkipsAlreadyMissingSources(t *testing.T) {
	m := testManager(t)
	work := t.TempDir()
	present := filepath.Join(work, "present.txt")
	writeFile(t, present, "x")

	// gone.txt was deleted after the snapshot was taken; there is nothing
	// left to undo for it.
	states := map[string]string{present: filepath.Join(work, "present_orig.txt")}
	states[filepath.Join(work, "gone.txt")] = filepath.Join(work, "gone_orig.txt")
	snap, err := m.Create(domain.OpMoveFiles, states, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := m.Rollback(snap.SnapshotID)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if !result.Success || result.Restored != 1 || result.Failed != 0 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(filepath.Join(work, "present_orig.txt")); err != nil {
		t.Fatalf("present file not restored: %v", err)
	}
	// The skip does not block snapshot consumption.
	if _, err := m.Load(snap.SnapshotID); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("load after rollback err = %v, want ErrSnapshotNotFound", err)
	}
}

func TestRollbackPartialFailureKeepsSnapshot(t *testing.T) {
	m := testManager(t)
	work := t.TempDir()
	present := filepath.Join(work, "present.txt")
	stuck := filepath.Join(work, "stuck.txt")
	writeFile(t, present, "x")
	writeFile(t, stuck, "y")
	// A regular file where stuck's original parent directory should be
	// makes MkdirAll fail regardless of privileges.
	writeFile(t, filepath.Join(work, "blocker"), "not a dir")

	states := map[string]string{
		present: filepath.Join(work, "present_orig.txt"),
		stuck:   filepath.Join(work, "blocker", "stuck_orig.txt"),
	}
	snap, err := m.Create(domain.OpMoveFiles, states, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	result, err := m.Rollback(snap.SnapshotID)
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if result.Success || result.Restored != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	// The snapshot survives for a retry.
	if _, err := m.Load(snap.SnapshotID); err != nil {
		t.Fatalf("snapshot should survive partial rollback: %v", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	m := testManager(t)
	if _, err := m.Create(domain.OpMoveFiles, map[string]string{"/a": "/b"}, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := m.Create(domain.OpMoveFiles, map[string]string{"/c": "/d"}, nil, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := m.CleanupExpired()
	if err != nil || removed != 0 {
		t.Fatalf("removed = %d, err = %v; nothing is expired yet", removed, err)
	}

	m.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	removed, err = m.CleanupExpired()
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	snaps, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("snapshots remaining: %d", len(snaps))
	}
}
