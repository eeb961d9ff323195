package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// mysqlSchema keeps the relation and column names of the search tables.
// Paths are VARBINARY so they compare byte for byte and fit the InnoDB key
// limit.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS search (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		searchroot TEXT NOT NULL,
		timestart DATETIME(6) NOT NULL,
		timeend DATETIME(6) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS searchresult (
		id BIGINT NOT NULL,
		result INT NOT NULL,
		numfiles INT NOT NULL,
		filesize BIGINT NULL,
		PRIMARY KEY (id, result),
		FOREIGN KEY (id) REFERENCES search (id)
	)`,
	`CREATE TABLE IF NOT EXISTS searchresultfiles (
		id BIGINT NOT NULL,
		result INT NOT NULL,
		file VARBINARY(3060) NOT NULL,
		PRIMARY KEY (id, result, file),
		FOREIGN KEY (id, result) REFERENCES searchresult (id, result)
	)`,
}

// NewMySQLStore connects to dsn, creates the tables and prepares all
// statements. parseTime is always enabled on the connection.
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Connection pool tuning
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	return openSQLStore(ctx, db, mysqlSchema, true)
}
