package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	findduplicatefiles "github.com/TheFlyingBadger/findDuplicateFiles/pkg"
)

const (
	dbTimeout   = 5 * time.Second
	saveTimeout = 2 * time.Minute
)

// SQLStore implements Store over database/sql using prepared statements and
// context timeouts. The MySQL and SQLite backends differ only in schema and
// in how member paths are bound.
type SQLStore struct {
	db          *sql.DB
	schema      []string
	binaryPaths bool

	stmtCreateSearch *sql.Stmt
	stmtGetSearch    *sql.Stmt
	stmtInsertResult *sql.Stmt
	stmtInsertFile   *sql.Stmt
	stmtFinishSearch *sql.Stmt
}

// openSQLStore pings db, creates the tables and prepares all statements.
// db is closed on failure.
func openSQLStore(ctx context.Context, db *sql.DB, schema []string, binaryPaths bool) (*SQLStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, schema: schema, binaryPaths: binaryPaths}
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepare(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) pathArg(file string) any {
	if s.binaryPaths {
		return []byte(file)
	}
	return file
}

func (s *SQLStore) prepare(ctx context.Context) error {
	statements := []struct {
		target **sql.Stmt
		name   string
		query  string
	}{
		{&s.stmtCreateSearch, "createSearch", "INSERT INTO search (searchroot, timestart) VALUES (?, ?)"},
		{&s.stmtGetSearch, "getSearch", "SELECT id, searchroot, timestart, timeend FROM search WHERE id = ?"},
		{&s.stmtInsertResult, "insertResult", "INSERT INTO searchresult (id, result, numfiles, filesize) VALUES (?, ?, ?, ?)"},
		{&s.stmtInsertFile, "insertFile", "INSERT INTO searchresultfiles (id, result, file) VALUES (?, ?, ?)"},
		{&s.stmtFinishSearch, "finishSearch", "UPDATE search SET timeend = ? WHERE id = ?"},
	}

	for _, st := range statements {
		stmt, err := s.db.PrepareContext(ctx, st.query)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", st.name, err)
		}
		*st.target = stmt
	}
	return nil
}

// CreateTables creates the search tables of the dialect if they do not exist.
func (s *SQLStore) CreateTables(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	for _, stmt := range s.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store createTables: %w", err)
		}
	}
	return nil
}

// DeletePrevious removes every search of root in one transaction.
func (s *SQLStore) DeletePrevious(ctx context.Context, root string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store deletePrevious begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT id FROM search WHERE searchroot = ?", root)
	if err != nil {
		return 0, fmt.Errorf("store deletePrevious select: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("store deletePrevious scan: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("store deletePrevious rows: %w", err)
	}

	// Children first so the foreign keys hold throughout
	for _, id := range ids {
		for _, query := range []string{
			"DELETE FROM searchresultfiles WHERE id = ?",
			"DELETE FROM searchresult WHERE id = ?",
			"DELETE FROM search WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return 0, fmt.Errorf("store deletePrevious %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store deletePrevious commit: %w", err)
	}
	return len(ids), nil
}

// CreateSearch inserts a search row and returns its id.
func (s *SQLStore) CreateSearch(ctx context.Context, root string, start time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	res, err := s.stmtCreateSearch.ExecContext(ctx, root, start)
	if err != nil {
		return 0, fmt.Errorf("store createSearch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store createSearch id: %w", err)
	}
	return id, nil
}

// SaveResults inserts the groups and their files and sets timeend, all in
// one transaction.
func (s *SQLStore) SaveResults(ctx context.Context, id int64, groups []findduplicatefiles.ResultGroup, end time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store saveResults begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM search WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("store saveResults lookup: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("store saveResults %d: %w", id, ErrSearchNotFound)
	}

	insertResult := tx.StmtContext(ctx, s.stmtInsertResult)
	insertFile := tx.StmtContext(ctx, s.stmtInsertFile)

	for _, group := range groups {
		var size sql.NullInt64
		if group.TotalSize != nil {
			size = sql.NullInt64{Int64: *group.TotalSize, Valid: true}
		}
		if _, err := insertResult.ExecContext(ctx, id, group.Ordinal, group.Count, size); err != nil {
			return fmt.Errorf("store saveResults result %d: %w", group.Ordinal, err)
		}
		for _, file := range group.Files {
			if _, err := insertFile.ExecContext(ctx, id, group.Ordinal, s.pathArg(file)); err != nil {
				return fmt.Errorf("store saveResults file %s: %w", file, err)
			}
		}
	}

	if _, err := tx.StmtContext(ctx, s.stmtFinishSearch).ExecContext(ctx, end, id); err != nil {
		return fmt.Errorf("store saveResults finish: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store saveResults commit: %w", err)
	}
	return nil
}

// ListSearches returns every search ordered by id.
func (s *SQLStore) ListSearches(ctx context.Context) ([]SearchRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT id, searchroot, timestart, timeend FROM search ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store listSearches: %w", err)
	}
	defer rows.Close()

	var records []SearchRecord
	for rows.Next() {
		rec, err := scanSearch(rows)
		if err != nil {
			return nil, fmt.Errorf("store listSearches scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LoadSearch returns one search with its groups in ordinal order.
func (s *SQLStore) LoadSearch(ctx context.Context, id int64) (*Search, error) {
	ctx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	rec, err := scanSearch(s.stmtGetSearch.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store loadSearch %d: %w", id, ErrSearchNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store loadSearch: %w", err)
	}

	search := &Search{SearchRecord: rec}
	ordinals := make(map[int]int)

	rows, err := s.db.QueryContext(ctx, "SELECT result, numfiles, filesize FROM searchresult WHERE id = ? ORDER BY result", id)
	if err != nil {
		return nil, fmt.Errorf("store loadSearch results: %w", err)
	}
	for rows.Next() {
		var group findduplicatefiles.ResultGroup
		var size sql.NullInt64
		if err := rows.Scan(&group.Ordinal, &group.Count, &size); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store loadSearch results scan: %w", err)
		}
		if size.Valid {
			group.TotalSize = &size.Int64
		}
		ordinals[group.Ordinal] = len(search.Groups)
		search.Groups = append(search.Groups, group)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store loadSearch results: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT result, file FROM searchresultfiles WHERE id = ? ORDER BY result, file", id)
	if err != nil {
		return nil, fmt.Errorf("store loadSearch files: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ordinal int
		var file []byte
		if err := rows.Scan(&ordinal, &file); err != nil {
			return nil, fmt.Errorf("store loadSearch files scan: %w", err)
		}
		if idx, ok := ordinals[ordinal]; ok {
			search.Groups[idx].Files = append(search.Groups[idx].Files, string(file))
		}
	}
	return search, rows.Err()
}

// Close releases all prepared statements and the connection pool.
func (s *SQLStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtCreateSearch, s.stmtGetSearch, s.stmtInsertResult, s.stmtInsertFile, s.stmtFinishSearch} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSearch(row rowScanner) (SearchRecord, error) {
	var rec SearchRecord
	var end sql.NullTime
	if err := row.Scan(&rec.ID, &rec.Root, &rec.Start, &end); err != nil {
		return SearchRecord{}, err
	}
	if end.Valid {
		rec.End = &end.Time
	}
	return rec, nil
}
