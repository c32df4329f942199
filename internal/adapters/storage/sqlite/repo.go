package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/kanboard/internal/app"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// maxActivityRows bounds the activity table; older rows are pruned on insert.
const maxActivityRows = 500

// storedTimeLayout is fixed-width so stored timestamps sort lexically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// defaultActivityLimit applies when ListActivity is called without a limit.
const defaultActivityLimit = 50

// Repository stores local client state: preferences and the activity log.
type Repository struct {
	db *sql.DB
}

// Open opens the database at path, creating its directory and schema as needed.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// Each pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS preferences (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			occurred_at TEXT NOT NULL,
			operation TEXT NOT NULL,
			summary TEXT NOT NULL DEFAULT '',
			target TEXT NOT NULL DEFAULT '',
			failed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_occurred_at ON activity(occurred_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// GetPreference returns the stored value for key or app.ErrNotFound.
func (r *Repository) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", app.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetPreference upserts key.
func (r *Repository) SetPreference(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("preference key is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences(key, value, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, ts(time.Now()))
	return err
}

// RecordActivity appends entry and prunes rows beyond the retention bound.
func (r *Repository) RecordActivity(ctx context.Context, entry app.ActivityEntry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO activity(occurred_at, operation, summary, target, failed)
		VALUES(?, ?, ?, ?, ?)
	`, ts(entry.At), entry.Op, entry.Summary, entry.Target, boolToInt(entry.Failed)); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM activity
		WHERE id NOT IN (SELECT id FROM activity ORDER BY occurred_at DESC, id DESC LIMIT ?)
	`, maxActivityRows); err != nil {
		return fmt.Errorf("prune activity: %w", err)
	}
	return tx.Commit()
}

// ListActivity returns up to limit entries, newest first.
func (r *Repository) ListActivity(ctx context.Context, limit int) ([]app.ActivityEntry, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT occurred_at, operation, summary, target, failed
		FROM activity
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]app.ActivityEntry, 0)
	for rows.Next() {
		var (
			entry      app.ActivityEntry
			occurredAt string
			failed     int
		)
		if err := rows.Scan(&occurredAt, &entry.Op, &entry.Summary, &entry.Target, &failed); err != nil {
			return nil, err
		}
		entry.At = parseTS(occurredAt)
		entry.Failed = failed != 0
		out = append(out, entry)
	}
	return out, rows.Err()
}

// ts formats t for storage.
func ts(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// parseTS parses a stored timestamp; malformed values become the zero time.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
