// Package store is the Job Store (spec §4.2): typed CRUD on Job, Video,
// Segment and Clip rows plus the count_segments/count_clips aggregation
// queries, backed by a pure-Go SQLite database so the binary stays
// cgo-free.
//
// Grounded on down-kingo-downkingo's internal/storage package: the same
// sql.Open("sqlite", ...) + pragma + migrate-on-connect shape, and the
// same repository-per-entity layout with COALESCE-based scan columns.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection shared by all repositories.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates (if necessary) dataDir and opens/migrates the Job Store
// database inside it.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "clipforge.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	db := &DB{conn: conn, path: dbPath}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying *sql.DB for callers that need raw access.
// No package in this module calls it.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		source_url TEXT NOT NULL,
		video_id TEXT,
		status TEXT NOT NULL DEFAULT 'queued',
		progress INTEGER NOT NULL DEFAULT 0,
		current_step TEXT,
		error_message TEXT,
		options TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		completed_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_video_id ON jobs(video_id);

	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		external_id TEXT NOT NULL UNIQUE,
		source_url TEXT NOT NULL,
		title TEXT,
		description TEXT,
		duration INTEGER NOT NULL DEFAULT 0,
		thumbnail_url TEXT,
		storage_key TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'downloaded',
		raw_metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS segments (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL REFERENCES videos(id),
		start_time REAL NOT NULL,
		end_time REAL NOT NULL,
		composite_score REAL NOT NULL DEFAULT 0,
		yt_retention REAL NOT NULL DEFAULT 0,
		signals TEXT NOT NULL DEFAULT '{}',
		reason TEXT,
		status TEXT NOT NULL DEFAULT 'detected',
		has_captions BOOLEAN NOT NULL DEFAULT FALSE,
		caption_style TEXT,
		caption_data BLOB,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_segments_video_id ON segments(video_id);

	CREATE TABLE IF NOT EXISTS clips (
		id TEXT PRIMARY KEY,
		segment_id TEXT NOT NULL UNIQUE REFERENCES segments(id),
		video_id TEXT NOT NULL REFERENCES videos(id),
		storage_key TEXT NOT NULL,
		thumbnail_key TEXT,
		title TEXT,
		description TEXT,
		tags TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'ready_for_review',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_clips_video_id ON clips(video_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}
