// Package audit persists the append-only operation trail. The primary store
// is SQLite; every write is mirrored to daily JSONL files so the trail
// survives database corruption.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/filegate/internal/domain"
)

// SQLiteStore persists audit entries in audit.db under the audit directory.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the audit database and ensures the
// schema exists.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	path := filepath.Join(dir, "audit.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			audit_id TEXT NOT NULL UNIQUE,
			timestamp TEXT NOT NULL,
			user_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			status TEXT NOT NULL,
			paths TEXT NOT NULL,
			file_count INTEGER NOT NULL DEFAULT 0,
			total_size INTEGER NOT NULL DEFAULT 0,
			success INTEGER NOT NULL DEFAULT 0,
			details TEXT,
			snapshot_id TEXT,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_log(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_operation ON audit_log(operation);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_risk_level ON audit_log(risk_level);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert appends one entry. Entries are never updated or deleted outside
// the retention sweep.
func (s *SQLiteStore) Insert(ctx context.Context, entry domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths, err := json.Marshal(entry.Paths)
	if err != nil {
		return err
	}
	var details []byte
	if len(entry.Details) > 0 {
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return err
		}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO audit_log
		(audit_id, timestamp, user_id, operation, risk_level, status, paths, file_count, total_size, success, details, snapshot_id, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.AuditID,
		entry.Timestamp.Format(time.RFC3339Nano),
		entry.UserID,
		string(entry.Operation),
		string(entry.RiskLevel),
		string(entry.Status),
		string(paths),
		entry.FileCount,
		entry.TotalSize,
		boolToInt(entry.Success),
		string(details),
		entry.SnapshotID,
		entry.Error,
	)
	return err
}

const selectColumns = `audit_id, timestamp, user_id, operation, risk_level, status, paths, file_count, total_size, success, details, snapshot_id, error`

// Recent returns the newest entries.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.query(ctx,
		"SELECT "+selectColumns+" FROM audit_log ORDER BY datetime(timestamp) DESC LIMIT ?",
		normalizeLimit(limit))
}

// ByUser returns a user's entries newest first.
func (s *SQLiteStore) ByUser(ctx context.Context, userID string, limit, offset int) ([]domain.AuditEntry, error) {
	return s.query(ctx,
		"SELECT "+selectColumns+" FROM audit_log WHERE user_id = ? ORDER BY datetime(timestamp) DESC LIMIT ? OFFSET ?",
		userID, normalizeLimit(limit), offset)
}

// ByTimeframe returns entries at or after since.
func (s *SQLiteStore) ByTimeframe(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	return s.query(ctx,
		"SELECT "+selectColumns+" FROM audit_log WHERE datetime(timestamp) >= datetime(?) ORDER BY datetime(timestamp) DESC LIMIT ?",
		since.Format(time.RFC3339Nano), normalizeLimit(limit))
}

// HighRisk returns high and critical entries after since.
func (s *SQLiteStore) HighRisk(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	return s.query(ctx,
		"SELECT "+selectColumns+" FROM audit_log WHERE risk_level IN (?, ?) AND datetime(timestamp) >= datetime(?) ORDER BY datetime(timestamp) DESC LIMIT ?",
		string(domain.RiskHigh), string(domain.RiskCritical), since.Format(time.RFC3339Nano), normalizeLimit(limit))
}

// Failed returns failed entries after since.
func (s *SQLiteStore) Failed(ctx context.Context, since time.Time, limit int) ([]domain.AuditEntry, error) {
	return s.query(ctx,
		"SELECT "+selectColumns+" FROM audit_log WHERE status = ? AND datetime(timestamp) >= datetime(?) ORDER BY datetime(timestamp) DESC LIMIT ?",
		string(domain.AuditFailed), since.Format(time.RFC3339Nano), normalizeLimit(limit))
}

// Statistics aggregates the trail since the given time, optionally for a
// single user.
func (s *SQLiteStore) Statistics(ctx context.Context, userID string, since time.Time) (domain.AuditStats, error) {
	stats := domain.AuditStats{
		RiskDistribution: map[string]int{},
		TopOperations:    map[string]int{},
		Since:            since,
	}

	where := "WHERE datetime(timestamp) >= datetime(?)"
	args := []interface{}{since.Format(time.RFC3339Nano)}
	if userID != "" {
		where += " AND user_id = ?"
		args = append(args, userID)
	}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(success), 0),
		COALESCE(SUM(file_count), 0), COALESCE(SUM(total_size), 0) FROM audit_log `+where, args...)
	if err := row.Scan(&stats.TotalOperations, &stats.SuccessfulOperations,
		&stats.TotalFilesProcessed, &stats.TotalSizeBytes); err != nil {
		return domain.AuditStats{}, err
	}
	if stats.TotalOperations > 0 {
		stats.SuccessRate = float64(stats.SuccessfulOperations) / float64(stats.TotalOperations)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT risk_level, COUNT(*) FROM audit_log `+where+` GROUP BY risk_level`, args...)
	if err != nil {
		return domain.AuditStats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return domain.AuditStats{}, err
		}
		stats.RiskDistribution[level] = count
	}
	if err := rows.Err(); err != nil {
		return domain.AuditStats{}, err
	}

	opRows, err := s.db.QueryContext(ctx, `SELECT operation, COUNT(*) AS n FROM audit_log `+where+` GROUP BY operation ORDER BY n DESC LIMIT 10`, args...)
	if err != nil {
		return domain.AuditStats{}, err
	}
	defer opRows.Close()
	for opRows.Next() {
		var op string
		var count int
		if err := opRows.Scan(&op, &count); err != nil {
			return domain.AuditStats{}, err
		}
		stats.TopOperations[op] = count
	}
	return stats, opRows.Err()
}

// PruneOlderThan deletes entries older than the cutoff and returns how many
// were removed.
func (s *SQLiteStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_log WHERE datetime(timestamp) < datetime(?)",
		cutoff.Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ExportJSON writes the whole trail to a jsonl file, oldest first.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dest string) error {
	entries, err := s.query(ctx, "SELECT "+selectColumns+" FROM audit_log ORDER BY datetime(timestamp) ASC")
	if err != nil {
		return err
	}
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	for _, entry := range entries {
		b, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) query(ctx context.Context, stmt string, args ...interface{}) ([]domain.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var ts, op, level, status, paths string
		var success int
		var details, snapshotID, errMsg sql.NullString
		if err := rows.Scan(&entry.AuditID, &ts, &entry.UserID, &op, &level, &status,
			&paths, &entry.FileCount, &entry.TotalSize, &success, &details, &snapshotID, &errMsg); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Timestamp = t
		}
		entry.Operation = domain.OperationKind(op)
		entry.RiskLevel = domain.RiskLevel(level)
		entry.Status = domain.AuditStatus(status)
		entry.Success = success == 1
		if paths != "" {
			_ = json.Unmarshal([]byte(paths), &entry.Paths)
		}
		if details.Valid && strings.TrimSpace(details.String) != "" {
			_ = json.Unmarshal([]byte(details.String), &entry.Details)
		}
		entry.SnapshotID = snapshotID.String
		entry.Error = errMsg.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
