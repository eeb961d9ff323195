package findduplicatefiles

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DuplicateGroup represents a group of files with identical content
type DuplicateGroup struct {
	Hash  string      `json:"hash"`
	Size  int64       `json:"size"`
	Count int         `json:"count"`
	Files []FileEntry `json:"files"`
}

func newDuplicateGroup(digest []byte, size int64, members []FileEntry) DuplicateGroup {
	files := make([]FileEntry, len(members))
	copy(files, members)
	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return DuplicateGroup{
		Hash:  hex.EncodeToString(digest),
		Size:  size,
		Count: len(files),
		Files: files,
	}
}

// Paths returns the member paths in group order
func (g DuplicateGroup) Paths() []string {
	paths := make([]string, len(g.Files))
	for i, f := range g.Files {
		paths[i] = f.Path
	}
	return paths
}

// TotalSize returns the bytes occupied by all members together
func (g DuplicateGroup) TotalSize() int64 {
	return g.Size * int64(g.Count)
}

// Finder runs duplicate searches with a fixed set of options.
type Finder struct {
	opts Options

	mu    sync.Mutex
	stats Stats
}

// NewFinder validates opts and returns a Finder. Zero-valued fields take
// their defaults.
func NewFinder(opts Options) (*Finder, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Finder{opts: opts}, nil
}

// Options returns the effective options of the finder
func (f *Finder) Options() Options {
	return f.opts
}

// Stats returns the statistics of the most recent search
func (f *Finder) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// FindDuplicates returns the groups of byte-identical files under root.
// root must be an existing directory; otherwise a *ConfigError wrapping
// ErrNotADirectory is returned before anything is read. Unreadable entries
// reduce completeness but never produce a false group.
func (f *Finder) FindDuplicates(ctx context.Context, root string) ([]DuplicateGroup, error) {
	stats := &runStats{}
	defer func() {
		f.mu.Lock()
		f.stats = stats.snapshot()
		f.mu.Unlock()
	}()

	opts := f.opts
	opts.Logger = f.opts.Logger.With("run", uuid.NewString())
	logger := opts.Logger
	defer logger.Enter()()

	inventory, err := newInventory(root, opts, stats)
	if err != nil {
		return nil, err
	}
	classifier, err := newClassifier(opts, stats)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Info("starting duplicate search",
		"root", inventory.Root(),
		"algorithm", opts.HashAlgorithm,
		"prefix_size", opts.PrefixSize,
		"verify", classifier.Verifies(),
		"workers", opts.Workers)

	buckets, err := BucketBySize(ctx, inventory.Walk, opts.MinSize)
	if err != nil {
		return nil, fmt.Errorf("failed to inventory %s: %w", inventory.Root(), err)
	}
	logger.Info("inventory complete",
		"files", stats.filesScanned.Load(),
		"skipped", stats.traversalSkips.Load(),
		"buckets", buckets.Len(),
		"candidates", buckets.Candidates())

	groups, err := classifier.Classify(ctx, buckets)
	if err != nil {
		return nil, err
	}
	stats.groups.Store(int64(len(groups)))

	logger.Info("duplicate search complete",
		"groups", len(groups),
		"read_failures", stats.readFailures.Load(),
		"bytes_read", stats.bytesRead.Load(),
		"elapsed", time.Since(start))

	return groups, nil
}

// FindDuplicates runs a single search over root with opts
func FindDuplicates(ctx context.Context, root string, opts Options) ([]DuplicateGroup, error) {
	finder, err := NewFinder(opts)
	if err != nil {
		return nil, err
	}
	return finder.FindDuplicates(ctx, root)
}
