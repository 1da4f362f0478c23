package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goodtune/kfocus/internal/storage"
	_ "modernc.org/sqlite"
)

// Store implements the storage.Store interface using SQLite
type Store struct {
	db *sql.DB
}

// Open creates a new database connection and runs migrations
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := storage.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Sessions returns the session history store
func (s *Store) Sessions() storage.SessionStore { return &sessionStore{db: s.db} }

// Presets returns the block-list preset store
func (s *Store) Presets() storage.PresetStore { return &presetStore{db: s.db} }

// Schedules returns the schedule store
func (s *Store) Schedules() storage.ScheduleStore { return &scheduleStore{db: s.db} }

// Shared returns the cross-process key/value space
func (s *Store) Shared() storage.SharedStore { return &sharedStore{db: s.db} }

type migration struct {
	version int
	sql     string
}

// migrations are applied in slice order; versions must increase
var migrations = []migration{
	{1, migration001Sessions},
	{2, migration002Presets},
	{3, migration003Schedules},
	{4, migration004SharedState},
}

// runMigrations applies all pending database migrations
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}

	return nil
}

// Timestamps are stored as Unix nanoseconds so range filters compare integers.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n)
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const migration001Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	scheduled_duration INTEGER NOT NULL,
	actual_duration INTEGER,
	started_at INTEGER NOT NULL,
	ended_at INTEGER,
	is_deep_focus INTEGER NOT NULL DEFAULT 0,
	outcome TEXT NOT NULL DEFAULT 'pending', -- pending, completed or canceled
	points_earned INTEGER NOT NULL DEFAULT 0,
	task_id TEXT,
	task_title TEXT,
	preset_id TEXT,
	schedule_id TEXT,
	block_selection BLOB
);

CREATE INDEX idx_sessions_started_at ON sessions(started_at);
CREATE INDEX idx_sessions_outcome ON sessions(outcome);
`

const migration002Presets = `
CREATE TABLE IF NOT EXISTS presets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	targets TEXT NOT NULL, -- JSON array of target tokens
	is_allow_list INTEGER NOT NULL DEFAULT 0,
	usage_count INTEGER NOT NULL DEFAULT 0,
	last_used_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX idx_presets_name ON presets(name);
`

const migration003Schedules = `
CREATE TABLE IF NOT EXISTS schedules (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	start_time INTEGER NOT NULL,
	is_recurring INTEGER NOT NULL DEFAULT 0,
	start_hour INTEGER NOT NULL DEFAULT 0,
	start_minute INTEGER NOT NULL DEFAULT 0,
	recurring_days TEXT NOT NULL, -- JSON array of integers 0-6
	end_date INTEGER,
	duration INTEGER NOT NULL,
	is_deep_focus INTEGER NOT NULL DEFAULT 0,
	is_enabled INTEGER NOT NULL DEFAULT 1,
	preset_id TEXT,
	last_triggered_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX idx_schedules_enabled ON schedules(is_enabled);
`

const migration004SharedState = `
CREATE TABLE IF NOT EXISTS shared_state (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
