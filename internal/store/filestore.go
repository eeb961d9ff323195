package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sys/unix"

	findduplicatefiles "github.com/TheFlyingBadger/findDuplicateFiles/pkg"
)

const (
	fileStoreVersion = 1
	lockPollInterval = 50 * time.Millisecond
)

// fileDocument is the on-disk form of a FileStore
type fileDocument struct {
	Version  int       `json:"version"`
	NextID   int64     `json:"next_id"`
	Searches []*Search `json:"searches"`
}

// FileStore keeps every search in one zstd-compressed JSON document. Each
// operation holds an advisory lock on a sibling lock file, and writes replace
// the document atomically through a uniquely named temporary file.
type FileStore struct {
	path     string
	lockPath string
}

// NewFileStore returns a store backed by the document at path. The document
// is created by CreateTables.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	return &FileStore{path: absPath, lockPath: absPath + ".lock"}, nil
}

// Path returns the location of the document
func (s *FileStore) Path() string {
	return s.path
}

// CreateTables writes an empty document if none exists.
func (s *FileStore) CreateTables(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("store createTables: %w", err)
	}
	return s.update(ctx, func(doc *fileDocument) error { return nil })
}

// DeletePrevious removes every search of root.
func (s *FileStore) DeletePrevious(ctx context.Context, root string) (int, error) {
	removed := 0
	err := s.update(ctx, func(doc *fileDocument) error {
		kept := doc.Searches[:0]
		for _, search := range doc.Searches {
			if search.Root == root {
				removed++
				continue
			}
			kept = append(kept, search)
		}
		doc.Searches = kept
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store deletePrevious: %w", err)
	}
	return removed, nil
}

// CreateSearch appends a search and returns its id. Ids are never reused.
func (s *FileStore) CreateSearch(ctx context.Context, root string, start time.Time) (int64, error) {
	var id int64
	err := s.update(ctx, func(doc *fileDocument) error {
		doc.NextID++
		id = doc.NextID
		doc.Searches = append(doc.Searches, &Search{
			SearchRecord: SearchRecord{ID: id, Root: root, Start: start},
		})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store createSearch: %w", err)
	}
	return id, nil
}

// SaveResults stores the groups of a search and sets its end time.
func (s *FileStore) SaveResults(ctx context.Context, id int64, groups []findduplicatefiles.ResultGroup, end time.Time) error {
	err := s.update(ctx, func(doc *fileDocument) error {
		search := doc.find(id)
		if search == nil {
			return fmt.Errorf("%d: %w", id, ErrSearchNotFound)
		}
		if search.Finished() {
			return fmt.Errorf("search %d already has results", id)
		}
		search.Groups = append(search.Groups, groups...)
		search.End = &end
		return nil
	})
	if err != nil {
		return fmt.Errorf("store saveResults: %w", err)
	}
	return nil
}

// ListSearches returns every search ordered by id.
func (s *FileStore) ListSearches(ctx context.Context) ([]SearchRecord, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("store listSearches: %w", err)
	}

	records := make([]SearchRecord, 0, len(doc.Searches))
	for _, search := range doc.Searches {
		records = append(records, search.SearchRecord)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// LoadSearch returns one search with its groups.
func (s *FileStore) LoadSearch(ctx context.Context, id int64) (*Search, error) {
	doc, err := s.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("store loadSearch: %w", err)
	}
	search := doc.find(id)
	if search == nil {
		return nil, fmt.Errorf("store loadSearch %d: %w", id, ErrSearchNotFound)
	}
	return search, nil
}

// Close is a no-op; the document is not held open between operations.
func (s *FileStore) Close() error {
	return nil
}

func (doc *fileDocument) find(id int64) *Search {
	for _, search := range doc.Searches {
		if search.ID == id {
			return search
		}
	}
	return nil
}

// read loads the document under a shared lock
func (s *FileStore) read(ctx context.Context) (*fileDocument, error) {
	unlock, err := s.lock(ctx, unix.LOCK_SH)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.load()
}

// update loads the document under an exclusive lock, applies fn and writes
// the result back
func (s *FileStore) update(ctx context.Context, fn func(doc *fileDocument) error) error {
	unlock, err := s.lock(ctx, unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

// lock takes an flock on the lock file, polling so ctx can interrupt the wait
func (s *FileStore) lock(ctx context.Context, how int) (func(), error) {
	lockFile, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	for {
		err := unix.Flock(int(lockFile.Fd()), how|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			lockFile.Close()
			return nil, fmt.Errorf("lock %s: %w", s.lockPath, err)
		}

		select {
		case <-ctx.Done():
			lockFile.Close()
			return nil, fmt.Errorf("lock %s: %w", s.lockPath, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}

	return func() {
		unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
		lockFile.Close()
	}, nil
}

// load reads the document; a missing file is an empty document
func (s *FileStore) load() (*fileDocument, error) {
	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileDocument{Version: fileStoreVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer file.Close()

	decoder, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer decoder.Close()

	var doc fileDocument
	if err := json.NewDecoder(decoder).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", s.path, err)
	}
	if doc.Version != fileStoreVersion {
		return nil, fmt.Errorf("store %s has unsupported version %d", s.path, doc.Version)
	}
	return &doc, nil
}

// save writes doc to a temporary file and renames it over the document
func (s *FileStore) save(doc *fileDocument) error {
	tmpPath := fmt.Sprintf("%s.%s.tmp", s.path, uuid.NewString())
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create temp store: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			file.Close()
			os.Remove(tmpPath)
		}
	}()

	encoder, err := zstd.NewWriter(file, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := json.NewEncoder(encoder).Encode(doc); err != nil {
		encoder.Close()
		return fmt.Errorf("encode store: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("flush store: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		committed = true
		return fmt.Errorf("replace store: %w", err)
	}
	committed = true
	return nil
}
