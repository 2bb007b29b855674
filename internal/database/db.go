// Package database opens the SQLite files behind tickerdash and applies
// their embedded schemas.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed schemas/*.sql
var schemaFS embed.FS

// DatabaseProfile selects durability and pool settings.
type DatabaseProfile string

const (
	// ProfileCache trades durability for speed; contents can be refetched.
	ProfileCache DatabaseProfile = "cache"
	// ProfileStandard is used for data that must survive a crash.
	ProfileStandard DatabaseProfile = "standard"
)

// Database names. Each maps to a schema file under schemas/.
const (
	NameClientData = "client_data"
	NameSessions   = "sessions"
)

var schemaFiles = map[string]string{
	NameClientData: "schemas/client_data_schema.sql",
	NameSessions:   "schemas/sessions_schema.sql",
}

type profileSettings struct {
	synchronous string
	autoVacuum  string
	maxOpen     int
}

var profiles = map[DatabaseProfile]profileSettings{
	ProfileCache:    {synchronous: "OFF", autoVacuum: "FULL", maxOpen: 4},
	ProfileStandard: {synchronous: "NORMAL", autoVacuum: "INCREMENTAL", maxOpen: 10},
}

// DB is an open SQLite database with its name and profile.
type DB struct {
	conn    *sql.DB
	path    string
	profile DatabaseProfile
	name    string
}

// Config holds database configuration
type Config struct {
	Path    string
	Profile DatabaseProfile
	Name    string // selects the schema and labels logs
}

// New opens the database at cfg.Path, creating parent directories, and
// verifies the connection. Paths starting with "file:" are used verbatim.
func New(cfg Config) (*DB, error) {
	if !strings.HasPrefix(cfg.Path, "file:") {
		abs, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = abs
	}
	if _, ok := profiles[cfg.Profile]; !ok {
		cfg.Profile = ProfileStandard
	}
	settings := profiles[cfg.Profile]

	conn, err := sql.Open("sqlite", buildConnectionString(cfg.Path, cfg.Profile))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}
	conn.SetMaxOpenConns(settings.maxOpen)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{conn: conn, path: cfg.Path, profile: cfg.Profile, name: cfg.Name}, nil
}

// buildConnectionString appends the profile's PRAGMAs as _pragma query
// parameters understood by modernc.org/sqlite.
func buildConnectionString(path string, profile DatabaseProfile) string {
	settings := profiles[profile]
	pragmas := []string{
		"journal_mode(WAL)",
		"synchronous(" + settings.synchronous + ")",
		"auto_vacuum(" + settings.autoVacuum + ")",
		"temp_store(MEMORY)",
		"busy_timeout(5000)",
		"cache_size(-16000)", // KiB
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// Migrate applies the embedded schema for this database in one
// transaction. Schemas are idempotent. Unknown names have no schema.
func (db *DB) Migrate() error {
	file, ok := schemaFiles[db.name]
	if !ok {
		return nil
	}
	ddl, err := schemaFS.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read schema %s: %w", file, err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration of %s: %w", db.name, err)
	}
	if _, err := tx.Exec(string(ddl)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to apply schema %s to %s: %w", file, db.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration of %s: %w", db.name, err)
	}
	return nil
}

// Close truncates the WAL and closes the connection pool.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = db.Checkpoint(ctx, "TRUNCATE")
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Name() string {
	return db.name
}

func (db *DB) Path() string {
	return db.path
}

// QuickCheck pings the database and runs PRAGMA quick_check.
func (db *DB) QuickCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("quick_check failed for %s: %w", db.name, err)
	}
	if result != "ok" {
		return fmt.Errorf("quick_check for %s returned: %s", db.name, result)
	}
	return nil
}

// CheckpointResult is the row returned by PRAGMA wal_checkpoint.
type CheckpointResult struct {
	Busy         bool
	WALFrames    int
	Checkpointed int
}

// Checkpoint runs a WAL checkpoint in mode PASSIVE, FULL, RESTART or
// TRUNCATE. Empty means PASSIVE.
func (db *DB) Checkpoint(ctx context.Context, mode string) (CheckpointResult, error) {
	switch mode {
	case "":
		mode = "PASSIVE"
	case "PASSIVE", "FULL", "RESTART", "TRUNCATE":
	default:
		return CheckpointResult{}, fmt.Errorf("invalid checkpoint mode %q", mode)
	}

	var busy, frames, done int
	row := db.conn.QueryRowContext(ctx, "PRAGMA wal_checkpoint("+mode+")")
	if err := row.Scan(&busy, &frames, &done); err != nil {
		return CheckpointResult{}, fmt.Errorf("WAL checkpoint failed for %s: %w", db.name, err)
	}
	return CheckpointResult{Busy: busy != 0, WALFrames: frames, Checkpointed: done}, nil
}
