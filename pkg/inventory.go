package findduplicatefiles

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// FileEntry describes a regular file found by the inventory walk.
// The size is captured at walk time and is not re-checked until the
// classifier reads the file.
type FileEntry struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`

	id fileID
}

// fileID identifies a physical file or directory
type fileID struct {
	dev uint64
	ino uint64
}

// EntrySource produces file entries until it is exhausted, yield returns
// false or ctx is cancelled.
type EntrySource func(ctx context.Context, yield func(FileEntry) bool) error

// Inventory walks a directory tree and yields its regular files.
type Inventory struct {
	root        string // absolute root as given
	realRoot    string // root with symlinks resolved, for containment checks
	symlinkMode string
	hardlinks   bool
	ignore      *IgnoreManager
	logger      *Logger
	stats       *runStats
}

// NewInventory creates an inventory for root. root must be an existing
// directory, otherwise a *ConfigError wrapping ErrNotADirectory is returned.
func NewInventory(root string, opts Options) (*Inventory, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return newInventory(root, opts, &runStats{})
}

func newInventory(root string, opts Options, stats *runStats) (*Inventory, error) {
	absRoot, realRoot, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	return &Inventory{
		root:        absRoot,
		realRoot:    realRoot,
		symlinkMode: opts.SymlinkMode,
		hardlinks:   opts.Hardlinks,
		ignore:      opts.Ignore,
		logger:      opts.Logger,
		stats:       stats,
	}, nil
}

// Root returns the absolute root directory of the walk
func (inv *Inventory) Root() string {
	return inv.root
}

// resolveRoot checks that root is a directory and returns its absolute and
// symlink-resolved forms
func resolveRoot(root string) (string, string, error) {
	notADir := func(err error) error {
		if err == nil {
			err = ErrNotADirectory
		} else {
			err = fmt.Errorf("%w: %w", ErrNotADirectory, err)
		}
		return &ConfigError{Field: "root", Value: root, Err: err}
	}

	if root == "" {
		return "", "", notADir(nil)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", "", notADir(err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return "", "", notADir(err)
	}
	if !info.IsDir() {
		return "", "", notADir(nil)
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", "", notADir(err)
	}

	return absRoot, realRoot, nil
}

// Walk visits every regular file under the root depth first, taking the
// entries of each directory in byte order, and passes it to yield.
// Unreadable directories and failing stat calls are logged and skipped. Walk stops early when yield returns false, and returns
// an error only when ctx is cancelled. Each call performs a fresh walk.
func (inv *Inventory) Walk(ctx context.Context, yield func(FileEntry) bool) error {
	defer inv.logger.Enter()()

	queue := newPathQueue()
	queue.Push(inv.root, rootContext)

	visitedDirs := make(map[fileID]struct{})
	seenFiles := make(map[fileID]struct{})

	for {
		// Check for cancellation between directory entries
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("inventory interrupted: %w", err)
		}

		currentPath, context, ok := queue.Pop()
		if !ok {
			return nil
		}

		var info os.FileInfo
		var err error
		if context == rootContext {
			info, err = os.Stat(currentPath)
		} else {
			info, err = os.Lstat(currentPath)
		}
		if err != nil {
			inv.skip(currentPath, err)
			continue
		}

		if context != rootContext {
			if relPath, err := filepath.Rel(inv.root, currentPath); err == nil && inv.ignore.ShouldIgnore(relPath) {
				inv.logger.Debug("ignoring path", "path", currentPath)
				continue
			}
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if info, ok = inv.followSymlink(currentPath); !ok {
				continue
			}
		}

		switch {
		case info.IsDir():
			id, _ := identityOf(info)
			if _, seen := visitedDirs[id]; seen {
				inv.logger.Debug("directory already visited", "path", currentPath)
				continue
			}
			visitedDirs[id] = struct{}{}

			// ReadDir returns the entries it managed to read alongside the error
			entries, err := os.ReadDir(currentPath)
			if err != nil {
				inv.skip(currentPath, err)
			}
			inv.stats.dirsScanned.Add(1)

			for _, entry := range entries {
				queue.Push(filepath.Join(currentPath, entry.Name()), entryContext)
			}

		case info.Mode().IsRegular():
			id, hasID := identityOf(info)
			if hasID && !inv.hardlinks {
				if _, seen := seenFiles[id]; seen {
					inv.logger.Debug("skipping additional link to file", "path", currentPath)
					continue
				}
				seenFiles[id] = struct{}{}
			}

			inv.stats.filesScanned.Add(1)
			inv.logger.Debug("found file", "path", currentPath, "size", info.Size())

			entry := FileEntry{
				Path: currentPath,
				Name: filepath.Base(currentPath),
				Size: info.Size(),
				id:   id,
			}
			if !yield(entry) {
				return nil
			}
		}
	}
}

// followSymlink applies the symlink mode to a link and returns the info of
// its target when the link should be followed
func (inv *Inventory) followSymlink(path string) (os.FileInfo, bool) {
	switch inv.symlinkMode {
	case SymlinkNone:
		inv.logger.Debug("not following symlink", "path", path)
		return nil, false
	case SymlinkContained:
		target, err := filepath.EvalSymlinks(path)
		if err != nil {
			inv.skip(path, err)
			return nil, false
		}
		if !isPathContained(target, inv.realRoot) {
			inv.logger.Debug("symlink points outside root", "path", path, "target", target)
			return nil, false
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		inv.skip(path, err)
		return nil, false
	}
	return info, true
}

func (inv *Inventory) skip(path string, err error) {
	inv.stats.traversalSkips.Add(1)
	inv.logger.Warn("skipping path", "path", path, "error", err)
}

// identityOf extracts the device and inode of a file
func identityOf(info os.FileInfo) (fileID, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat == nil {
		return fileID{}, false
	}
	return fileID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}
