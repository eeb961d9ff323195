// Package store persists duplicate searches and their result groups.
//
// A search is stored across three relations: search (one row per run),
// searchresult (one row per duplicate group) and searchresultfiles (one row
// per member path). Three backends implement the same Store interface:
// SQLite and MySQL through database/sql, and a single compressed file on
// local disk.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	findduplicatefiles "github.com/TheFlyingBadger/findDuplicateFiles/pkg"
)

// ErrSearchNotFound is returned when a search id does not exist.
var ErrSearchNotFound = errors.New("search not found")

// SearchRecord is one row of the search relation.
type SearchRecord struct {
	ID    int64      `json:"id"`
	Root  string     `json:"searchroot"`
	Start time.Time  `json:"timestart"`
	End   *time.Time `json:"timeend,omitempty"`
}

// Finished reports whether results were saved for the search
func (r SearchRecord) Finished() bool {
	return r.End != nil
}

// Search is a search together with its result groups.
type Search struct {
	SearchRecord
	Groups []findduplicatefiles.ResultGroup `json:"results"`
}

// Store is the persistence interface for searches.
// Implementations must honour the supplied context for cancellation and timeouts.
type Store interface {
	// CreateTables prepares the backing storage. It is idempotent.
	CreateTables(ctx context.Context) error

	// DeletePrevious removes every search of root with its results and
	// returns how many searches were removed.
	DeletePrevious(ctx context.Context, root string) (int, error)

	// CreateSearch records the start of a search and returns its id.
	CreateSearch(ctx context.Context, root string, start time.Time) (int64, error)

	// SaveResults stores the groups of a search and sets its end time.
	SaveResults(ctx context.Context, id int64, groups []findduplicatefiles.ResultGroup, end time.Time) error

	// ListSearches returns every search ordered by id.
	ListSearches(ctx context.Context) ([]SearchRecord, error)

	// LoadSearch returns one search with its groups, or ErrSearchNotFound.
	LoadSearch(ctx context.Context, id int64) (*Search, error)

	// Close releases the store.
	Close() error
}

// Open opens the store for driver. location is a MySQL DSN for the mysql
// driver and a file path for the sqlite and file drivers. The tables are
// created if they do not exist.
func Open(ctx context.Context, driver, location string) (Store, error) {
	switch driver {
	case findduplicatefiles.DriverSQLite, "":
		return NewSQLiteStore(ctx, location)
	case findduplicatefiles.DriverMySQL:
		return NewMySQLStore(ctx, location)
	case findduplicatefiles.DriverFile:
		s, err := NewFileStore(location)
		if err != nil {
			return nil, err
		}
		if err := s.CreateTables(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}
