package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteSchema follows the column types of the original search database.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS search (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		searchroot text NOT NULL,
		timestart datetime NOT NULL,
		timeend datetime
	)`,
	`CREATE TABLE IF NOT EXISTS searchresult (
		id INTEGER NOT NULL,
		result INTEGER NOT NULL,
		numfiles INTEGER NOT NULL,
		filesize INTEGER,
		PRIMARY KEY (id, result),
		FOREIGN KEY (id) REFERENCES search (id)
	)`,
	`CREATE TABLE IF NOT EXISTS searchresultfiles (
		id INTEGER NOT NULL,
		result INTEGER NOT NULL,
		file text NOT NULL,
		PRIMARY KEY (id, result, file),
		FOREIGN KEY (id, result) REFERENCES searchresult (id, result)
	)`,
}

// NewSQLiteStore opens the database file at path, creating it and its
// parent directory if needed. Foreign keys are enforced and times are
// written in SQLite's own datetime format.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := absPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time; SQLite serialises writes anyway
	db.SetMaxOpenConns(1)

	return openSQLStore(ctx, db, sqliteSchema, false)
}
