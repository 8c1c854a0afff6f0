package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mcptoolbox/internal/model"
)

const defaultListLimit = 50

// SQLiteStore is the tool journal: one row per tool call and one per cache
// file written.
type SQLiteStore struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

var _ model.Journal = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return err
	}

	schema := `
CREATE TABLE IF NOT EXISTS tool_calls (
  call_id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL DEFAULT '',
  tool TEXT NOT NULL,
  success INTEGER NOT NULL DEFAULT 0,
  error_kind TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  duration_ms INTEGER NOT NULL DEFAULT 0,
  called_at_unix_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cache_entries (
  entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
  path TEXT NOT NULL UNIQUE,
  kind TEXT NOT NULL,
  resource_key TEXT NOT NULL DEFAULT '',
  size_bytes INTEGER NOT NULL DEFAULT 0,
  created_at_unix_ms INTEGER NOT NULL
);

-- history and cache listings read newest first.
CREATE INDEX IF NOT EXISTS idx_tool_calls_called_at ON tool_calls(called_at_unix_ms);
CREATE INDEX IF NOT EXISTS idx_cache_entries_created_at ON cache_entries(created_at_unix_ms);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) RecordCall(ctx context.Context, rec model.CallRecord) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rec.Tool) == "" {
		return errors.New("tool name is required")
	}
	if rec.CalledAt.IsZero() {
		rec.CalledAt = time.Now()
	}

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO tool_calls(session_id, tool, success, error_kind, error, duration_ms, called_at_unix_ms)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.Tool,
		boolToInt(rec.Success),
		string(rec.ErrorKind),
		rec.Error,
		rec.DurationMS,
		rec.CalledAt.UnixMilli(),
	)
	return err
}

// RecentCalls returns up to limit calls, newest first.
func (s *SQLiteStore) RecentCalls(ctx context.Context, limit int) ([]model.CallRecord, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.QueryContext(
		ctx,
		`SELECT call_id, session_id, tool, success, error_kind, error, duration_ms, called_at_unix_ms
		 FROM tool_calls ORDER BY called_at_unix_ms DESC, call_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.CallRecord, 0, limit)
	for rows.Next() {
		var rec model.CallRecord
		var success int
		var kind string
		var calledAt int64
		if err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.Tool,
			&success,
			&kind,
			&rec.Error,
			&rec.DurationMS,
			&calledAt,
		); err != nil {
			return nil, err
		}
		rec.Success = success == 1
		rec.ErrorKind = model.ErrorKind(kind)
		rec.CalledAt = time.UnixMilli(calledAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordCacheEntry adds or refreshes the manifest row for entry.Path.
func (s *SQLiteStore) RecordCacheEntry(ctx context.Context, entry model.CacheEntry) error {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(entry.Path) == "" {
		return errors.New("cache entry path is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err = db.ExecContext(
		ctx,
		`INSERT INTO cache_entries(path, kind, resource_key, size_bytes, created_at_unix_ms)
		 VALUES(?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   kind=excluded.kind,
		   resource_key=excluded.resource_key,
		   size_bytes=excluded.size_bytes,
		   created_at_unix_ms=excluded.created_at_unix_ms`,
		entry.Path,
		defaultIfEmpty(entry.Kind, "file"),
		entry.ResourceKey,
		entry.SizeBytes,
		entry.CreatedAt.UnixMilli(),
	)
	return err
}

// CacheEntries returns up to limit manifest rows, newest first.
func (s *SQLiteStore) CacheEntries(ctx context.Context, limit int) ([]model.CacheEntry, error) {
	db, err := s.ensureDB(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := db.QueryContext(
		ctx,
		`SELECT path, kind, resource_key, size_bytes, created_at_unix_ms
		 FROM cache_entries ORDER BY created_at_unix_ms DESC, entry_id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.CacheEntry, 0, limit)
	for rows.Next() {
		var entry model.CacheEntry
		var createdAt int64
		if err := rows.Scan(&entry.Path, &entry.Kind, &entry.ResourceKey, &entry.SizeBytes, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ensureDB(ctx context.Context) (*sql.DB, error) {
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("sqlite db not initialized")
	}
	return s.db, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func defaultIfEmpty(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
