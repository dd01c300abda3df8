package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run ID does not exist, or when the latest
// run is requested from an empty database.
var ErrRunNotFound = errors.New("run not found")

// Store is the SQLite data access layer for persisted analysis runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              INTEGER PRIMARY KEY,
  root            TEXT NOT NULL,
  created_at      TIMESTAMP NOT NULL,
  duration_ms     INTEGER NOT NULL DEFAULT 0,
  file_count      INTEGER NOT NULL DEFAULT 0,
  unit_count      INTEGER NOT NULL DEFAULT 0,
  edge_count      INTEGER NOT NULL DEFAULT 0,
  slot_count      INTEGER NOT NULL DEFAULT 0,
  graph_hash      TEXT
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  path            TEXT NOT NULL,
  name            TEXT,
  hash            TEXT,
  size            INTEGER NOT NULL DEFAULT 0,
  unit_id         TEXT,
  UNIQUE(run_id, path)
);

CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  unit_id         TEXT NOT NULL,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  imports         TEXT NOT NULL DEFAULT '[]',
  exports         TEXT NOT NULL DEFAULT '[]',
  uses_state      BOOLEAN NOT NULL DEFAULT FALSE,
  uses_effect     BOOLEAN NOT NULL DEFAULT FALSE,
  uses_props      BOOLEAN NOT NULL DEFAULT FALSE,
  degree          INTEGER NOT NULL DEFAULT 0,
  UNIQUE(run_id, unit_id)
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  source          TEXT NOT NULL,
  target          TEXT NOT NULL,
  props           TEXT
);

CREATE TABLE IF NOT EXISTS state_slots (
  id              INTEGER PRIMARY KEY,
  run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  setter          TEXT NOT NULL,
  owner_id        TEXT NOT NULL,
  owner_name      TEXT NOT NULL,
  consumers       TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
CREATE INDEX IF NOT EXISTS idx_units_run ON units(run_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_units_kind ON units(run_id, kind);
CREATE INDEX IF NOT EXISTS idx_edges_run ON edges(run_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(run_id, source);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(run_id, target);
CREATE INDEX IF NOT EXISTS idx_state_slots_run ON state_slots(run_id, ordinal);
`

// GetMetadata returns the value stored under key, or "" if none.
func (s *Store) GetMetadata(key string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %q: %w", key, err)
	}
	return v.String, nil
}

// SetMetadata stores value under key, replacing any previous value.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}
