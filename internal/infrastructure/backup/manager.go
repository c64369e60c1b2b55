// Package backup copies path contents aside before destructive operations.
// Each backup is a directory mirroring the original layout plus an entry in
// a shared metadata.json index. Eviction runs by total size and by age.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/filegate/internal/domain"
	"github.com/doeshing/filegate/internal/pkg/filesystem"
	"github.com/doeshing/filegate/internal/ports"
)

const (
	metadataFile = "metadata.json"
	// copyConcurrency bounds parallel file copies within one backup.
	copyConcurrency = 4
)

// Manager implements ports.BackupService.
type Manager struct {
	dir           string
	storageCap    int64
	retentionDays int
	log           ports.Logger

	mu      sync.Mutex
	records []domain.BackupRecord

	now func() time.Time
}

// NewManager opens (or initialises) the backup root and loads the metadata
// index.
func NewManager(settings domain.BackupSettings, log ports.Logger) (*Manager, error) {
	if err := os.MkdirAll(settings.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	m := &Manager{
		dir:           settings.Directory,
		storageCap:    settings.StorageCapBytes,
		retentionDays: settings.RetentionDays,
		log:           log,
		now:           time.Now,
	}
	if err := m.loadMetadata(); err != nil {
		return nil, err
	}
	return m, nil
}

// Create copies every existing path into a fresh backup directory. Missing
// or unreadable paths are skipped with a warning rather than failing the
// whole backup. The metadata entry is appended only after all copies have
// landed, so a concurrent eviction sweep never sees a half-written backup.
func (m *Manager) Create(ctx context.Context, paths []string, op domain.OperationKind, userID string) (domain.BackupRecord, error) {
	if len(paths) == 0 {
		return domain.BackupRecord{}, &domain.ValidationError{Field: "paths", Msg: "nothing to back up"}
	}

	now := m.now()
	id := backupID(now, op, paths)
	root := filepath.Join(m.dir, id)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return domain.BackupRecord{}, fmt.Errorf("create backup root: %w", err)
	}

	var entryMu sync.Mutex
	var entries []domain.BackupEntry

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for _, p := range paths {
		path := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				m.log.Warn("backup skipping missing path", map[string]interface{}{
					"path": path,
				})
				return nil
			}
			target := filepath.Join(root, filesystem.SafeRelativePath(path))
			entry := domain.BackupEntry{Original: path, BackupLocation: target, Type: domain.BackupEntryFile}
			if info.IsDir() {
				entry.Type = domain.BackupEntryDirectory
				err = filesystem.CopyTree(path, target)
			} else {
				err = filesystem.CopyFile(path, target)
			}
			if err != nil {
				m.log.Warn("backup copy failed, skipping path", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
				return nil
			}
			entryMu.Lock()
			entries = append(entries, entry)
			entryMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		os.RemoveAll(root)
		return domain.BackupRecord{}, err
	}
	if len(entries) == 0 {
		os.RemoveAll(root)
		return domain.BackupRecord{}, fmt.Errorf("backup %s: no path could be copied", id)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Original < entries[j].Original })
	record := domain.BackupRecord{
		ID:        id,
		Timestamp: now,
		Operation: op,
		UserID:    userID,
		Entries:   entries,
		TotalSize: filesystem.DirSize(root),
		FileCount: filesystem.CountFiles(root),
	}

	m.mu.Lock()
	m.records = append(m.records, record)
	err := m.saveMetadataLocked()
	m.mu.Unlock()
	if err != nil {
		return domain.BackupRecord{}, err
	}

	m.log.Info("backup created", map[string]interface{}{
		"backup_id": id,
		"files":     record.FileCount,
		"size":      record.TotalSize,
	})
	m.evict()
	return record, nil
}

// Restore copies a backup's contents back to their original locations,
// replacing whatever currently occupies them. Per-entry failures do not
// stop the remaining entries; the restore succeeds if at least one entry
// came back.
func (m *Manager) Restore(ctx context.Context, backupID string) error {
	record, ok := m.find(backupID)
	if !ok {
		return domain.ErrBackupNotFound
	}

	restored := 0
	var errs []string
	for _, entry := range record.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := restoreEntry(entry); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", entry.Original, err))
			continue
		}
		restored++
	}
	if restored == 0 {
		return fmt.Errorf("restore %s: no entry restored: %s", backupID, strings.Join(errs, "; "))
	}
	if len(errs) > 0 {
		m.log.Warn("restore completed partially", map[string]interface{}{
			"backup_id": backupID,
			"restored":  restored,
			"failed":    len(errs),
		})
	}
	return nil
}

func restoreEntry(entry domain.BackupEntry) error {
	if _, err := os.Stat(entry.BackupLocation); err != nil {
		return err
	}
	if err := os.RemoveAll(entry.Original); err != nil {
		return err
	}
	if entry.Type == domain.BackupEntryDirectory {
		return filesystem.CopyTree(entry.BackupLocation, entry.Original)
	}
	return filesystem.CopyFile(entry.BackupLocation, entry.Original)
}

// List returns backups newest first, optionally filtered by user and age.
func (m *Manager) List(userID string, since time.Time) ([]domain.BackupRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.BackupRecord
	for _, rec := range m.records {
		if userID != "" && rec.UserID != userID {
			continue
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Delete removes one backup and its metadata entry.
func (m *Manager) Delete(backupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, rec := range m.records {
		if rec.ID == backupID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrBackupNotFound
	}
	if err := os.RemoveAll(filepath.Join(m.dir, backupID)); err != nil {
		return err
	}
	m.records = append(m.records[:idx], m.records[idx+1:]...)
	return m.saveMetadataLocked()
}

// StorageInfo summarises usage against the cap.
func (m *Manager) StorageInfo() domain.BackupStorageInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := domain.BackupStorageInfo{
		BackupCount: len(m.records),
		StorageCap:  m.storageCap,
	}
	for _, rec := range m.records {
		info.TotalFiles += rec.FileCount
		info.TotalSize += rec.TotalSize
	}
	if m.storageCap > 0 {
		info.UsagePercent = float64(info.TotalSize) / float64(m.storageCap) * 100
	}
	return info
}

// Prune runs both eviction policies immediately.
func (m *Manager) Prune() error {
	m.evict()
	return nil
}

// evict applies the age window first, then removes oldest backups until
// usage fits under the cap.
func (m *Manager) evict() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -m.retentionDays)
	kept := m.records[:0]
	changed := false
	for _, rec := range m.records {
		if m.retentionDays > 0 && rec.Timestamp.Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(m.dir, rec.ID)); err != nil {
				m.log.Warn("backup eviction failed", map[string]interface{}{
					"backup_id": rec.ID, "error": err.Error(),
				})
				kept = append(kept, rec)
				continue
			}
			changed = true
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept

	if m.storageCap > 0 {
		sort.Slice(m.records, func(i, j int) bool {
			return m.records[i].Timestamp.Before(m.records[j].Timestamp)
		})
		var total int64
		for _, rec := range m.records {
			total += rec.TotalSize
		}
		for total > m.storageCap && len(m.records) > 0 {
			victim := m.records[0]
			if err := os.RemoveAll(filepath.Join(m.dir, victim.ID)); err != nil {
				m.log.Warn("backup eviction failed", map[string]interface{}{
					"backup_id": victim.ID, "error": err.Error(),
				})
				break
			}
			total -= victim.TotalSize
			m.records = m.records[1:]
			changed = true
		}
	}

	if changed {
		if err := m.saveMetadataLocked(); err != nil {
			m.log.Error("backup metadata save failed", err, nil)
		}
	}
}

func (m *Manager) find(backupID string) (domain.BackupRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.ID == backupID {
			return rec, true
		}
	}
	return domain.BackupRecord{}, false
}

func (m *Manager) loadMetadata() error {
	data, err := os.ReadFile(filepath.Join(m.dir, metadataFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, &m.records)
}

func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(m.dir, metadataFile), data, 0o644)
}

// backupID is backup_<timestamp>_<operation>_<hash8>; the hash disambiguates
// same-second backups of different path sets.
func backupID(now time.Time, op domain.OperationKind, paths []string) string {
	h := sha256.Sum256([]byte(strings.Join(paths, "\x00")))
	return fmt.Sprintf("backup_%s_%s_%s",
		now.Format("20060102_150405"), op, hex.EncodeToString(h[:4]))
}

var _ ports.BackupService = (*Manager)(nil)
