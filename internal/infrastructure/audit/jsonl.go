package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/filegate/internal/domain"
)

// Mirror appends every audit entry to a daily JSONL file next to the
// database. The mirror is a recovery artifact: it is written on every
// Record and only read back by humans or external tooling.
type Mirror struct {
	dir string
	mu  sync.Mutex
}

// NewMirror creates the mirror directory if needed.
func NewMirror(dir string) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit mirror dir: %w", err)
	}
	return &Mirror{dir: dir}, nil
}

// Append writes one entry to the file for the entry's day.
func (m *Mirror) Append(entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	path := filepath.Join(m.dir, fileForDay(entry.Timestamp))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(b, '\n')); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// PruneOlderThan removes daily files whose date is before the cutoff day.
func (m *Mirror) PruneOlderThan(cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	cutoffDay := cutoff.UTC().Truncate(24 * time.Hour)
	for _, ent := range entries {
		day, ok := dayFromFile(ent.Name())
		if !ok {
			continue
		}
		if day.Before(cutoffDay) {
			if err := os.Remove(filepath.Join(m.dir, ent.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func fileForDay(t time.Time) string {
	return "audit_" + t.UTC().Format("2006-01-02") + ".jsonl"
}

func dayFromFile(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, "audit_") || !strings.HasSuffix(name, ".jsonl") {
		return time.Time{}, false
	}
	day, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, "audit_"), ".jsonl"))
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
