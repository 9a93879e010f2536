package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/jira-bridge/internal/model"
)

// defaultActivityLimit caps ListActivity when the filter sets no limit.
const defaultActivityLimit = 50

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetCursor returns the last successful sync time for a host and query.
func (s *SQLiteStore) GetCursor(
	ctx context.Context,
	host, query string,
) (time.Time, bool, error) {
	var c model.SyncCursor
	err := s.db.GetContext(ctx, &c,
		"SELECT host, query, synced_at FROM sync_cursors WHERE host = ? AND query = ?",
		host, query,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading sync cursor: %w", err)
	}

	return c.SyncedAt, true, nil
}

// SetCursor inserts or replaces the sync time for a host and query.
func (s *SQLiteStore) SetCursor(
	ctx context.Context,
	host, query string,
	t time.Time,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (host, query, synced_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(host, query) DO UPDATE SET
			synced_at = excluded.synced_at,
			updated_at = excluded.updated_at`,
		host, query, t.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing sync cursor: %w", err)
	}

	return nil
}

// DeleteCursor forgets the sync time so the next fetch is a full one.
func (s *SQLiteStore) DeleteCursor(ctx context.Context, host, query string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM sync_cursors WHERE host = ? AND query = ?", host, query,
	)
	if err != nil {
		return fmt.Errorf("deleting sync cursor: %w", err)
	}

	return nil
}

// RecordActivity inserts a new activity record.
func (s *SQLiteStore) RecordActivity(ctx context.Context, a model.Activity) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity (id, host, issue_key, kind, detail, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Host, a.IssueKey, string(a.Kind), a.Detail,
		boolToInt(a.Applied), a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}

	return nil
}

// ListActivity returns activity records, newest first.
func (s *SQLiteStore) ListActivity(
	ctx context.Context,
	filter ActivityFilter,
) ([]model.Activity, error) {
	var conditions []string
	var args []interface{}

	if filter.IssueKey != nil {
		conditions = append(conditions, "issue_key = ?")
		args = append(args, *filter.IssueKey)
	}
	if filter.Kind != nil {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(*filter.Kind))
	}

	query := "SELECT id, host, issue_key, kind, detail, applied, created_at FROM activity"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	args = append(args, limit)

	var activity []model.Activity
	if err := s.db.SelectContext(ctx, &activity, query, args...); err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}

	return activity, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
