package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DefaultSQLitePath is used when no database path is configured.
const DefaultSQLitePath = "doglist.db"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS dogs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT    NOT NULL,
		name_key    TEXT    NOT NULL,
		breed       TEXT    NOT NULL DEFAULT '',
		image_ref   TEXT    NOT NULL DEFAULT '',
		is_favorite INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dogs_name_key_idx ON dogs (name_key)`,
}

// NewSQLiteStore opens (creating if needed) a SQLite database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	s, err := newSQLStore(ctx, db, dialect{
		name:              "sqlite",
		schema:            sqliteSchema,
		isUniqueViolation: isSQLiteUniqueViolation,
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
