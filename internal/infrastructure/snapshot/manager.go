// Package snapshot records how to reverse a completed operation and
// performs the rollback. A snapshot maps every file's current location back
// to its original one and lists folders the operation created.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/filesystem"
	"github.com/doeshing/filegate/internal/ports"
)

// Manager implements ports.SnapshotService over one JSON file per snapshot.
type Manager struct {
	dir       string
	retention time.Duration
	log       ports.Logger
	now       func() time.Time
}

// NewManager initialises the snapshot directory.
func NewManager(settings domain.SnapshotSettings, log ports.Logger) (*Manager, error) {
	if err := os.MkdirAll(settings.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	retention := time.Duration(settings.RetentionHours) * time.Hour
	if retention <= 0 {
		retention = domain.DefaultSnapshotRetention
	}
	return &Manager{
		dir:       settings.Directory,
		retention: retention,
		log:       log,
		now:       time.Now,
	}, nil
}

// Create persists a new snapshot. The file is written to a temp name and
// renamed into place so a crash never leaves a truncated snapshot behind.
func (m *Manager) Create(op domain.OperationKind, fileStates map[string]string, foldersCreated []string, metadata map[string]string) (domain.Snapshot, error) {
	now := m.now()
	snap := domain.Snapshot{
		SnapshotID:     uuid.NewString(),
		Operation:      op,
		FileStates:     fileStates,
		FoldersCreated: foldersCreated,
		Metadata:       metadata,
		CreatedAt:      now,
		ExpiresAt:      now.Add(m.retention),
	}
	if err := m.persist(snap); err != nil {
		return domain.Snapshot{}, err
	}
	m.log.Info("snapshot created", map[string]interface{}{
		"snapshot_id": snap.SnapshotID,
		"operation":   string(op),
		"files":       len(fileStates),
	})
	return snap, nil
}

// Load reads one snapshot by id.
func (m *Manager) Load(snapshotID string) (domain.Snapshot, error) {
	data, err := os.ReadFile(m.path(snapshotID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", snapshotID, err)
	}
	return snap, nil
}

// List returns all stored snapshots newest first, including expired ones.
func (m *Manager) List() ([]domain.Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, err
	}
	var snaps []domain.Snapshot
	for _, ent := range entries {
		id, ok := idFromFile(ent.Name())
		if !ok {
			continue
		}
		snap, err := m.Load(id)
		if err != nil {
			m.log.Warn("skipping unreadable snapshot", map[string]interface{}{
				"file": ent.Name(), "error": err.Error(),
			})
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.After(snaps[j].CreatedAt) })
	return snaps, nil
}

// Rollback moves every file from its current location back to its original
// one and removes created folders that ended up empty. A source that no
// longer exists needs no undoing and is skipped. Expired snapshots are
// refused before any file is touched. The snapshot file is deleted only
// after a fully successful rollback, so a partial failure can be retried.
func (m *Manager) Rollback(snapshotID string) (domain.RollbackResult, error) {
	snap, err := m.Load(snapshotID)
	if err != nil {
		return domain.RollbackResult{}, err
	}
	if snap.Expired(m.now()) {
		return domain.RollbackResult{}, domain.ErrSnapshotExpired
	}

	var result domain.RollbackResult
	for current, original := range snap.FileStates {
		if _, err := os.Stat(current); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := moveBack(current, original); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", current, err))
			continue
		}
		result.Restored++
	}

	// Folders are removed leaf-first; a folder that still has content is
	// left alone.
	for i := len(snap.FoldersCreated) - 1; i >= 0; i-- {
		folder := snap.FoldersCreated[i]
		if isEmptyDir(folder) {
			if err := os.Remove(folder); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", folder, err))
			}
		}
	}

	result.Success = result.Failed == 0
	if result.Success {
		if err := os.Remove(m.path(snapshotID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("snapshot cleanup failed after rollback", map[string]interface{}{
				"snapshot_id": snapshotID, "error": err.Error(),
			})
		}
	}
	m.log.Info("rollback finished", map[string]interface{}{
		"snapshot_id": snapshotID,
		"restored":    result.Restored,
		"failed":      result.Failed,
	})
	return result, nil
}

// CleanupExpired deletes snapshot files past their expiry and returns how
// many were removed.
func (m *Manager) CleanupExpired() (int, error) {
	snaps, err := m.List()
	if err != nil {
		return 0, err
	}
	now := m.now()
	removed := 0
	for _, snap := range snaps {
		if !snap.Expired(now) {
			continue
		}
		if err := os.Remove(m.path(snap.SnapshotID)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (m *Manager) persist(snap domain.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	final := m.path(snap.SnapshotID)
	tmp := final + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, final)
}

func (m *Manager) path(snapshotID string) string {
	return filepath.Join(m.dir, "snapshot_"+snapshotID+".json")
}

func idFromFile(name string) (string, bool) {
	if !strings.HasPrefix(name, "snapshot_") || !strings.HasSuffix(name, ".json") {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "snapshot_"), ".json"), true
}

// moveBack renames current to original, falling back to copy-and-delete
// when the rename crosses filesystems.
func moveBack(current, original string) error {
	if err := os.MkdirAll(filepath.Dir(original), 0o755); err != nil {
		return err
	}
	if err := os.Rename(current, original); err == nil {
		return nil
	}
	if err := filesystem.CopyFile(current, original); err != nil {
		return err
	}
	return os.Remove(current)
}

func isEmptyDir(path string) bool {
	entries, err := os.ReadDir(path)
	return err == nil && len(entries) == 0
}

var _ ports.SnapshotService = (*Manager)(nil)
